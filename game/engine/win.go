package engine

import (
	"github.com/wricardo/boxpush/game/ecs"
	"go.uber.org/zap"
)

// Observer is told once per game when it is won.
type Observer interface {
	GameWon(movesCount int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(movesCount int)

func (f ObserverFunc) GameWon(movesCount int) { f(movesCount) }

// LogObserver reports wins to a zap logger.
type LogObserver struct {
	Logger *zap.Logger
	Level  string
}

func (o LogObserver) GameWon(movesCount int) {
	if o.Logger == nil {
		return
	}
	o.Logger.Info("game won", zap.String("level", o.Level), zap.Int("moves", movesCount))
}

type multiObserver []Observer

func (m multiObserver) GameWon(movesCount int) {
	for _, o := range m {
		o.GameWon(movesCount)
	}
}

// EvaluateWin marks the game won when every box spot has a box on it and
// notifies obs. It does nothing once the game is won. Reports whether the
// state changed.
func EvaluateWin(store *ecs.Store, state *GameState, obs Observer) bool {
	if state.State == Won {
		return false
	}

	boxes := store.IndexByCell(ecs.KindBox)
	for spot := range store.Query(ecs.KindBoxSpot, ecs.KindPosition) {
		if _, ok := boxes[store.Position(spot).Cell()]; !ok {
			return false
		}
	}

	state.State = Won
	if obs != nil {
		obs.GameWon(state.MovesCount)
	}
	return true
}
