package livemap

import (
	"fmt"
	"strings"
	"time"

	"github.com/eak1mov/go-livemap/basemap"
	"github.com/eak1mov/go-livemap/layers"
)

const (
	// FreezeThreshold is the system update time that counts as a frozen frame.
	FreezeThreshold = 16 * time.Millisecond
	// freezeShowTime is how long a freeze stays reported after it ends.
	freezeShowTime = 7 * time.Second
)

// Diagnostics is a performance readout for a debug overlay.
type Diagnostics struct {
	TimerTick     time.Duration
	SystemsUpdate time.Duration
	Entities      int
	SlowestSystem string
	SlowestTime   time.Duration
	// Freezing names the slowest system of the worst recent freeze, empty
	// when there was none for a while.
	Freezing         string
	SchedulerPending int
	DirtyLayers      []string
	DownloadingTiles int
	Loading          bool
}

// Lines formats the readout one value per line.
func (d Diagnostics) Lines() []string {
	lines := []string{
		fmt.Sprintf("Timer tick: %v", d.TimerTick),
		fmt.Sprintf("Systems update: %v", d.SystemsUpdate),
		fmt.Sprintf("Entities count: %d", d.Entities),
		fmt.Sprintf("Slowest update: %v %s", d.SlowestTime, d.SlowestSystem),
	}
	if d.Freezing != "" {
		lines = append(lines, d.Freezing)
	}
	return append(lines,
		fmt.Sprintf("Micro threads: %d", d.SchedulerPending),
		fmt.Sprintf("Dirty layers: %s", strings.Join(d.DirtyLayers, ", ")),
		fmt.Sprintf("Downloading tiles: %d", d.DownloadingTiles),
		fmt.Sprintf("Is loading: %v", d.Loading),
	)
}

type diagnostics struct {
	last       Diagnostics
	freezeTime time.Duration
	showLeft   time.Duration
	message    string
}

func newDiagnostics() *diagnostics {
	return &diagnostics{}
}

func (d *diagnostics) update(e *Engine, dt time.Duration) {
	s := e.store
	var total time.Duration
	for _, st := range s.SystemTimes() {
		total += st.Duration
	}
	slowest, _ := s.SlowestSystem()
	d.updateFreezing(slowest.Name, slowest.Duration, dt)

	d.last = Diagnostics{
		TimerTick:        dt,
		SystemsUpdate:    total,
		Entities:         s.Count(),
		SlowestSystem:    slowest.Name,
		SlowestTime:      slowest.Duration,
		Freezing:         d.message,
		SchedulerPending: e.scheduler.Pending(),
		DirtyLayers:      layers.DirtyNames(s),
		DownloadingTiles: basemap.DownloadingCount(s),
		Loading:          e.Loading(),
	}
}

func (d *diagnostics) updateFreezing(name string, took, dt time.Duration) {
	if took > FreezeThreshold {
		if took > d.freezeTime {
			d.showLeft = freezeShowTime
			d.freezeTime = took
			d.message = fmt.Sprintf("Freezed by: %v %s", took, name)
		}
		return
	}
	d.showLeft -= dt
	if d.showLeft <= 0 {
		d.showLeft = 0
		d.freezeTime = 0
		d.message = ""
	}
}

// Diagnostics returns the readout computed by the last Tick.
func (e *Engine) Diagnostics() Diagnostics {
	return e.diagnostics.last
}
