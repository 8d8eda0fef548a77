package feature

import (
	"fmt"
	"strings"
	"time"
)

type ChangepointComp string

const (
	ChangepointCompBias  ChangepointComp = "bias"
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint is a step (bias) or ramp (slope) that starts at a point in time and alters the
// ongoing trend
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "changepoint_component":
		return string(c.ChangepointComp), true
	}
	return "", false
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	return map[string]string{
		"name":                  c.Name,
		"changepoint_component": string(c.ChangepointComp),
	}
}

// Generate computes the changepoint feature starting at chpt. The slope component reaches 1 at
// the training end time.
func (c Changepoint) Generate(t []time.Time, chpt, trainEnd time.Time) []float64 {
	res := make([]float64, len(t))
	delta := trainEnd.Sub(chpt).Seconds()
	for i, tPnt := range t {
		if tPnt.Before(chpt) {
			continue
		}
		switch c.ChangepointComp {
		case ChangepointCompBias:
			res[i] = 1.0
		case ChangepointCompSlope:
			if delta > 0 {
				res[i] = tPnt.Sub(chpt).Seconds() / delta
			}
		}
	}
	return res
}
