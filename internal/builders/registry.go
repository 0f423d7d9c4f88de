package builders

import "github.com/suoto/hdl-checker/internal/hdlconfig"

// ForName resolves a configured builder name to its Backend, defaulting to
// Fallback for anything unrecognized rather than failing the project load
// (spec §4.4: an unreachable or unknown builder degrades gracefully).
func ForName(name hdlconfig.BuilderName) Backend {
	switch name {
	case hdlconfig.BuilderModelSim:
		return ModelSim{}
	case hdlconfig.BuilderGHDL:
		return GHDL{}
	case hdlconfig.BuilderXvhdl:
		return Xvhdl{}
	default:
		return Fallback{}
	}
}
