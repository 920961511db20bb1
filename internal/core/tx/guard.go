package tx

import "github.com/ethereum/go-ethereum/common"

// pairGuard holds one lock flag per pair. A pair's flag is set for the whole
// of any call sequence that moves its funds, so a callback that reaches back
// into the same pair is refused. It is only touched under Engine.mu.
type pairGuard struct {
	held map[common.Address]struct{}
}

func newPairGuard() *pairGuard {
	return &pairGuard{held: make(map[common.Address]struct{})}
}

// enter sets the flag for pair. It reports false if the flag was already set.
func (g *pairGuard) enter(pair common.Address) (release func(), ok bool) {
	if _, locked := g.held[pair]; locked {
		return nil, false
	}
	g.held[pair] = struct{}{}
	return func() { delete(g.held, pair) }, true
}

func (g *pairGuard) isHeld(pair common.Address) bool {
	_, locked := g.held[pair]
	return locked
}
