package strategy

import "main/internal/broker"

// Strategy is anything that can be wired onto a broker client before a
// run starts. Init registers subscriptions; after that the strategy is
// driven purely by its callbacks.
type Strategy interface {
	Name() string
	Init(c *broker.Client) error
}
