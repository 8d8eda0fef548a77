package options

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/basinflag/feature"
	"github.com/aouyang1/basinflag/forecast/util"
)

var DefaultAutoNumChangepoints int = 100

// Changepoint describes a point in time that will change the ongoing trend. This will
// include both a bias a growth feature.
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the changepoint fit to either use auto-detection
// by evenly placing N changepoints in the training window or a list of known changepoints.
// No changepoints are fit by default.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	EnableGrowth        bool          `json:"enable_growth"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(c.Changepoints) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tDatetime\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	}
	if _, err := fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, chpt := range c.Changepoints {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.DateOnly))
	}
	return tbl.Flush()
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                false,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		Changepoints:        nil,
	}
}

// GenerateAutoChangepoints evenly places changepoints across the time range of t, replacing
// any configured changepoints. Does nothing unless Auto is set.
func (c *ChangepointOptions) GenerateAutoChangepoints(t []time.Time) []Changepoint {
	if !c.Auto || len(t) == 0 {
		return nil
	}

	if c.AutoNumChangepoints == 0 {
		c.AutoNumChangepoints = DefaultAutoNumChangepoints
	}
	n := c.AutoNumChangepoints

	minTime, maxTime := t[0], t[0]
	for _, tPnt := range t {
		if tPnt.Before(minTime) {
			minTime = tPnt
		}
		if tPnt.After(maxTime) {
			maxTime = tPnt
		}
	}

	changepointWin := maxTime.Sub(minTime) / time.Duration(n)
	chpts := make([]Changepoint, 0, n)
	for i := 0; i < n; i++ {
		chpts = append(
			chpts,
			NewChangepoint("auto_"+strconv.Itoa(i), minTime.Add(changepointWin*time.Duration(i))),
		)
	}

	c.Changepoints = chpts
	return chpts
}

// GenerateFeatures builds the bias and optional slope feature of every changepoint at or before
// the training end time
func (c ChangepointOptions) GenerateFeatures(t []time.Time, trainingEndTime time.Time) (*feature.Set, error) {
	feat := feature.NewSet()
	for i, chpt := range c.Changepoints {
		// changepoints after the training end were never observed and would only add zero columns
		if chpt.T.After(trainingEndTime) {
			continue
		}

		chpntName := strconv.Itoa(i)
		if chpt.Name != "" {
			chpntName = chpt.Name
		}
		chpntBias := feature.NewChangepoint(chpntName, feature.ChangepointCompBias)
		if err := feat.Set(chpntBias, chpntBias.Generate(t, chpt.T, trainingEndTime)); err != nil {
			return nil, err
		}

		if c.EnableGrowth {
			chpntSlope := feature.NewChangepoint(chpntName, feature.ChangepointCompSlope)
			if err := feat.Set(chpntSlope, chpntSlope.Generate(t, chpt.T, trainingEndTime)); err != nil {
				return nil, err
			}
		}
	}
	return feat, nil
}
