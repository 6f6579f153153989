package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/batteryfi/batteryfi/internal/session"
)

func TestSoCBand(t *testing.T) {
	tests := []struct {
		soc  float64
		want Band
	}{
		{100, BandHigh},
		{70, BandHigh},
		{69.9, BandMedium},
		{40, BandMedium},
		{39.9, BandLow},
		{20, BandLow},
		{19.9, BandCritical},
	}
	for _, tt := range tests {
		if got := SoCBand(tt.soc); got != tt.want {
			t.Errorf("SoCBand(%v) = %s, want %s", tt.soc, got, tt.want)
		}
	}
}

func TestStep_RandomWalk(t *testing.T) {
	s := NewSimulator(nil)
	s.rand = func() float64 { return 1 }
	if got := s.Step(); got != InitialSoC+1 {
		t.Errorf("expected +1, got %v", got)
	}
	s.rand = func() float64 { return 0 }
	if got := s.Step(); got != InitialSoC {
		t.Errorf("expected -1, got %v", got)
	}
}

func TestStep_Clamps(t *testing.T) {
	s := NewSimulator(nil)
	s.rand = func() float64 { return 1 }
	for range 100 {
		s.Step()
	}
	if s.SoC() != MaxSoC {
		t.Errorf("expected clamp at %v, got %v", MaxSoC, s.SoC())
	}

	s.rand = func() float64 { return 0 }
	for range 200 {
		s.Step()
	}
	if s.SoC() != MinSoC {
		t.Errorf("expected clamp at %v, got %v", MinSoC, s.SoC())
	}
}

func TestSchedule_RegistersTick(t *testing.T) {
	sched := NewScheduler(context.Background())
	if err := NewSimulator(nil).Schedule(sched); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(sched.cron.Entries()) != 1 {
		t.Error("expected one entry")
	}
	if _, err := sched.Add("not a spec", func(context.Context) {}); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestSnapshot(t *testing.T) {
	v := NewView(NewSimulator(nil), &session.Session{Email: "a@b.c"})
	snap := v.Snapshot()

	if snap.SoC != InitialSoC || snap.SoCBand != BandHigh {
		t.Errorf("unexpected SoC %v %s", snap.SoC, snap.SoCBand)
	}
	if snap.BatteryHealth != 94 || snap.EnergyContribution != 1247 || snap.TotalRewards.String() != "2847.5" {
		t.Errorf("unexpected headline %+v", snap)
	}
	if len(snap.Battery) != 6 || len(snap.Rewards) != 6 || len(snap.Allocation) != 4 || len(snap.Community) != 4 {
		t.Error("unexpected series lengths")
	}

	total := 0.0
	for _, a := range snap.Allocation {
		total += a.Value
	}
	if total != 100 {
		t.Errorf("allocation should sum to 100, got %v", total)
	}

	snap.Battery[0].SoC = -1
	if batterySeries[0].SoC == -1 {
		t.Error("snapshot must not alias the shared series")
	}
}

func TestHub_GreetsAndBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sim *Simulator
	hub := NewHub(func() any { return sim.Update() })
	sim = NewSimulator(hub)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Update
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if first.Type != "soc" || first.SoC != InitialSoC {
		t.Errorf("unexpected greeting %+v", first)
	}

	// Registration is asynchronous; wait for it before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	sim.rand = func() float64 { return 1 }
	sim.Step()

	var next Update
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.SoC != InitialSoC+1 || next.Band != BandHigh {
		t.Errorf("unexpected update %+v", next)
	}
}
