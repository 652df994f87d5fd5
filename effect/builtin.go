package effect

// InstallBuiltins registers the stock effect set. Ids are stable and appear
// in saved scenes; renaming one breaks existing presets.
func InstallBuiltins(reg *Registry) {
	reg.Register(solidEffect{})
	reg.Register(gradientEffect{})
	reg.Register(rainbowEffect{})
	reg.Register(waveEffect{})
	reg.Register(chaseEffect{})
	reg.Register(pulseEffect{})
	reg.Register(strobeEffect{})
	reg.Register(sparkleEffect{})

	reg.RegisterMovement(orbitEffect{})
	reg.RegisterMovement(sweepEffect{})
	reg.RegisterMovement(pointEffect{})
}

// axisOf maps an axis parameter to a position component selector.
// Unrecognized values fall back to x.
func axisOf(p Params) func(x, y, z float64) float64 {
	switch p.String("axis", "x") {
	case "y":
		return func(x, y, z float64) float64 { return y }
	case "z":
		return func(x, y, z float64) float64 { return z }
	default:
		return func(x, y, z float64) float64 { return x }
	}
}
