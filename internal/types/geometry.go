package types

// IntPoint is an integer coordinate pair
type IntPoint struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

// DoublePoint is a floating point coordinate pair
type DoublePoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DoubleRgbColor is a colour with components in [0, 1]
type DoubleRgbColor struct {
	Red   float64 `json:"red" yaml:"red"`
	Green float64 `json:"green" yaml:"green"`
	Blue  float64 `json:"blue" yaml:"blue"`
}

// White is the default Finder background colour
var White = DoubleRgbColor{Red: 1, Green: 1, Blue: 1}
