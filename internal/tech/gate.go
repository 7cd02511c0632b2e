package tech

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/xtding233/scale-backend/internal/confignode"
)

// Mode is the game mode of the active session.
type Mode string

const (
	ModeNone           Mode = ""
	ModeSandbox        Mode = "SANDBOX"
	ModeCareer         Mode = "CAREER"
	ModeScienceSandbox Mode = "SCIENCE_SANDBOX"
)

// Gated reports whether tech gates apply in this mode.
func (m Mode) Gated() bool {
	return m == ModeCareer || m == ModeScienceSandbox
}

// ParseMode accepts case-insensitive names; unknown names map to ModeSandbox.
func ParseMode(s string) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeNone:
		return ModeNone
	case ModeCareer:
		return ModeCareer
	case ModeScienceSandbox:
		return ModeScienceSandbox
	default:
		return ModeSandbox
	}
}

// Session is the active game session and its persisted progression record.
type Session interface {
	Mode() Mode
	Progression() (*confignode.Node, error)
}

const rdScenario = "ResearchAndDevelopment"

// Gate answers whether a tech id has been unlocked.
type Gate struct {
	session Session
	log     *slog.Logger

	mu       sync.RWMutex
	loaded   bool
	unlocked map[string]struct{}
}

// NewGate creates a gate bound to a session. A nil session never gates.
func NewGate(session Session, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{session: session, log: log, unlocked: map[string]struct{}{"": {}}}
}

// NewFixedGate returns a gate with a fixed unlocked set that always applies.
func NewFixedGate(ids ...string) *Gate {
	g := NewGate(fixedSession{}, nil)
	g.replace(ids)
	return g
}

func (g *Gate) gated() bool {
	return g.session != nil && g.session.Mode().Gated()
}

// Reload rebuilds the unlocked set from the session's progression record.
// It is a no-op outside a gated session. The previous set is discarded.
func (g *Gate) Reload() {
	if !g.gated() {
		return
	}
	root, err := g.session.Progression()
	if err != nil {
		g.log.Warn("progression record unreadable; nothing unlocked", "err", err)
		g.replace(nil)
		return
	}
	ids := UnlockedTechs(root)
	g.replace(ids)
	g.log.Info("tech gates reloaded", "unlocked", len(ids))
}

func (g *Gate) replace(ids []string) {
	next := make(map[string]struct{}, len(ids)+1)
	for _, id := range ids {
		next[id] = struct{}{}
	}
	next[""] = struct{}{}

	g.mu.Lock()
	g.unlocked = next
	g.loaded = true
	g.mu.Unlock()
}

// IsUnlocked reports whether techID may be used. Outside a gated session,
// before the first Reload, or for the empty id it is always true.
func (g *Gate) IsUnlocked(techID string) bool {
	if g == nil || techID == "" || !g.gated() {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.loaded {
		return true
	}
	_, ok := g.unlocked[techID]
	return ok
}

// UnlockedTechs extracts tech ids from a save document:
// GAME > SCENARIO(name=ResearchAndDevelopment) > Tech.id
func UnlockedTechs(root *confignode.Node) []string {
	game := root.GetNode("GAME")
	if game == nil {
		return nil
	}
	for _, sc := range game.GetNodes("SCENARIO") {
		if name, _ := sc.GetValue("name"); name != rdScenario {
			continue
		}
		var ids []string
		for _, t := range sc.GetNodes("Tech") {
			if id, ok := t.GetValue("id"); ok {
				ids = append(ids, strings.TrimSpace(id))
			}
		}
		return ids
	}
	return nil
}

type fixedSession struct{}

func (fixedSession) Mode() Mode { return ModeCareer }
func (fixedSession) Progression() (*confignode.Node, error) { return &confignode.Node{}, nil }
