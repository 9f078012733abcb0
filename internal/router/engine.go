package router

import "sunwell/internal/router/rules"

func rulesEngine(program string) (*rules.Engine, error) {
	return rules.NewEngine(program)
}
