package feature

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var ErrFeatureLenMismatch = errors.New("feature length does not match the set")

// Set maps each feature to its observed values. All features in a set share the same length.
type Set struct {
	m      int
	set    map[string][]float64
	labels map[string]Feature
}

func NewSet() *Set {
	return &Set{
		set:    make(map[string][]float64),
		labels: make(map[string]Feature),
	}
}

// Set stores the data of a feature, replacing any previous data for the same feature
func (s *Set) Set(f Feature, data []float64) error {
	if len(s.set) > 0 && len(data) != s.m {
		return fmt.Errorf("%s has %d values but set has %d, %w", f, len(data), s.m, ErrFeatureLenMismatch)
	}
	s.m = len(data)
	s.set[f.String()] = data
	s.labels[f.String()] = f
	return nil
}

func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}

// Update merges all features of the other set into this one
func (s *Set) Update(other *Set) error {
	if other == nil {
		return nil
	}
	for _, f := range other.Labels().Labels() {
		if err := s.Set(f, other.set[f.String()]); err != nil {
			return err
		}
	}
	return nil
}

// FilterByType returns a new set sharing data with only the features of the given type
func (s *Set) FilterByType(ft FeatureType) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	for key, f := range s.labels {
		if f.Type() != ft {
			continue
		}
		res.set[key] = s.set[key]
		res.labels[key] = f
		res.m = s.m
	}
	return res
}

// Labels returns all features sorted by their string representation
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}

	labels := make([]Feature, 0, len(s.labels))
	for _, f := range s.labels {
		labels = append(labels, f)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].String() < labels[j].String()
	})
	return NewLabels(labels)
}

// Matrix returns an m x n design matrix with a row per observation and a column per feature
// in label order
func (s *Set) Matrix() *mat.Dense {
	if s.Len() == 0 || s.m == 0 {
		return nil
	}

	labels := s.Labels().Labels()
	n := len(labels)
	obs := make([]float64, s.m*n)
	for j, label := range labels {
		data := s.set[label.String()]
		for i := 0; i < s.m; i++ {
			obs[n*i+j] = data[i]
		}
	}
	return mat.NewDense(s.m, n, obs)
}
