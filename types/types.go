package types

// MetricTuple holds the comparison result of one test case
type MetricTuple struct {
	Name   string  `json:"name"`
	SSIM   float64 `json:"ssim"`
	RMSD   float64 `json:"rmsd"`
	Failed bool    `json:"failed"`
	// Index is the discovery order of the test, used to keep sorting stable
	// when several workers finish out of order.
	Index int `json:"index"`
}

// WorstCase returns the tuple recorded when no usable candidate image exists
func WorstCase(name string, index int) MetricTuple {
	return MetricTuple{
		Name:   name,
		SSIM:   0.0,
		RMSD:   1.0,
		Failed: true,
		Index:  index,
	}
}

// TestCase holds the paths derived for one scene file
type TestCase struct {
	Name         string
	ScenePath    string
	ImagePath    string
	RefImagePath string
	StdoutPath   string
	StderrPath   string
	DiffPath     string
	MontagePath  string
	Index        int
}
