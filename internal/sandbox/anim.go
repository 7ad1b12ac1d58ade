package sandbox

import (
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
)

// Section timings in seconds.
const (
	comboSectionLength = 0.6
	comboTraceAt       = 0.25
	comboWindowAt      = 0.45

	chargeLoopLength   = 0.8
	chargeAttackLength = 0.7
	chargeTraceAt      = 0.3

	attackSocket = "hand_r"
)

type Section struct {
	Name   string
	Length float64
	// Loop restarts the section and fires ChargeLoopCompleted on every pass.
	Loop bool
	// TraceAt fires AttackTrace from Socket when positive.
	TraceAt float64
	Socket  string
	// WindowAt fires SegmentEnded when positive.
	WindowAt float64
}

type MontageSpec struct {
	Sections []Section
}

func (m MontageSpec) find(name string) (int, bool) {
	for i, s := range m.Sections {
		if s.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (m MontageSpec) length() float64 {
	var total float64
	for _, s := range m.Sections {
		total += s.Length
	}
	return total
}

type Library map[engine.Montage]MontageSpec

// DefaultLibrary builds the combo and charged montages named by cfg.
func DefaultLibrary(cfg config.CombatConfig) Library {
	combo := MontageSpec{}
	for _, name := range cfg.ComboSections {
		combo.Sections = append(combo.Sections, Section{
			Name:     name,
			Length:   comboSectionLength,
			TraceAt:  comboTraceAt,
			Socket:   attackSocket,
			WindowAt: comboWindowAt,
		})
	}
	charged := MontageSpec{Sections: []Section{
		{Name: cfg.ChargeLoopSection, Length: chargeLoopLength, Loop: true},
		{Name: cfg.ChargeAttackSection, Length: chargeAttackLength, TraceAt: chargeTraceAt, Socket: attackSocket},
	}}
	return Library{
		engine.Montage(cfg.ComboMontage):   combo,
		engine.Montage(cfg.ChargedMontage): charged,
	}
}

// Animator plays one montage at a time and turns its timeline into
// engine.AnimEvents. Events go to sink; an animator without a sink only
// plays, which is all a mirrored remote needs.
type Animator struct {
	lib  Library
	sink func(engine.AnimEvent) bool

	cur      engine.Montage
	section  int
	elapsed  float64
	playing  bool
	traced   bool
	windowed bool
}

func NewAnimator(lib Library, sink func(engine.AnimEvent) bool) *Animator {
	return &Animator{lib: lib, sink: sink}
}

func (a *Animator) PlayMontage(m engine.Montage, section string) float64 {
	spec, ok := a.lib[m]
	if !ok || len(spec.Sections) == 0 {
		return 0
	}
	idx := 0
	if section != "" {
		if idx, ok = spec.find(section); !ok {
			return 0
		}
	}
	a.cur = m
	a.playing = true
	a.enter(idx)
	return spec.length()
}

func (a *Animator) JumpToSection(m engine.Montage, section string) {
	if !a.playing || m != a.cur {
		return
	}
	if idx, ok := a.lib[m].find(section); ok {
		a.enter(idx)
	}
}

func (a *Animator) StopMontage(blendOut float64) {
	if !a.playing {
		return
	}
	a.playing = false
	a.emit(engine.AnimEvent{Kind: engine.AnimMontageEnded, Montage: a.cur, Interrupted: true})
}

func (a *Animator) IsPlaying(m engine.Montage) bool {
	return a.playing && a.cur == m
}

// Current returns the playing montage and section name.
func (a *Animator) Current() (engine.Montage, string, bool) {
	if !a.playing {
		return "", "", false
	}
	return a.cur, a.lib[a.cur].Sections[a.section].Name, true
}

func (a *Animator) enter(idx int) {
	a.section = idx
	a.elapsed = 0
	a.traced = false
	a.windowed = false
}

// Advance moves the timeline by dt and fires every notify it crosses.
func (a *Animator) Advance(dt float64) {
	if !a.playing || dt <= 0 {
		return
	}
	a.elapsed += dt
	sec := a.lib[a.cur].Sections[a.section]

	if !a.traced && sec.TraceAt > 0 && a.elapsed >= sec.TraceAt {
		a.traced = true
		a.emit(engine.AnimEvent{Kind: engine.AnimAttackTrace, Montage: a.cur, Source: sec.Socket})
	}
	if !a.windowed && sec.WindowAt > 0 && a.elapsed >= sec.WindowAt {
		a.windowed = true
		a.emit(engine.AnimEvent{Kind: engine.AnimSegmentEnded, Montage: a.cur})
	}
	if a.elapsed < sec.Length {
		return
	}
	if sec.Loop {
		a.elapsed -= sec.Length
		a.traced = false
		a.windowed = false
		a.emit(engine.AnimEvent{Kind: engine.AnimChargeLoopCompleted, Montage: a.cur})
		return
	}
	a.playing = false
	a.emit(engine.AnimEvent{Kind: engine.AnimMontageEnded, Montage: a.cur})
}

func (a *Animator) emit(ev engine.AnimEvent) {
	if a.sink != nil {
		a.sink(ev)
	}
}
