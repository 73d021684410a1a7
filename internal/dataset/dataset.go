// Package dataset turns vehicular mobility traces into fog nodes.
//
// A dataset is a CSV file with one row per observation. Rows are grouped by
// node_id (or vehicle_id); each group yields one node whose mobility model is
// estimated from its speed sequence.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

var (
	idColumns      = []string{"node_id", "vehicle_id"}
	successColumns = []string{"success", "success_count", "past_success"}
	failureColumns = []string{"failure", "fail_count", "past_failure"}
)

// speedEpsilon keeps derived speeds finite for zero-duration records.
const speedEpsilon = 0.001

// Counts is a node's execution history.
type Counts struct {
	Success int
	Failure int
}

// Trust is the observed success ratio, 0.5 with no history.
func (c Counts) Trust() float64 {
	total := c.Success + c.Failure
	if total <= 0 {
		return 0.5
	}
	return float64(c.Success) / float64(total)
}

// LoadNodes reads a dataset file.
func LoadNodes(path string) ([]*domain.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	nodes, err := ReadNodes(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return nodes, nil
}

type columns struct {
	id, speed, distance, duration, success, failure int
}

type group struct {
	id     int
	speeds []float64
	counts *Counts
}

// ReadNodes parses a dataset and returns one node per id, ordered by id.
func ReadNodes(r io.Reader) ([]*domain.Node, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	groups := make(map[int]*group)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		id, err := parseID(field(record, cols.id))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		speed, err := rowSpeed(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		g, ok := groups[id]
		if !ok {
			g = &group{id: id}
			groups[id] = g
			if cols.success >= 0 && cols.failure >= 0 {
				s, err1 := parseCount(field(record, cols.success))
				f, err2 := parseCount(field(record, cols.failure))
				if err := errors.Join(err1, err2); err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				g.counts = &Counts{Success: s, Failure: f}
			}
		}
		g.speeds = append(g.speeds, speed)
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	nodes := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		nodes = append(nodes, BuildNode(g.id, g.speeds, g.counts))
	}
	return nodes, nil
}

// BuildNode derives a node from its speed trace. With nil counts a synthetic
// history is generated from the speed variance.
func BuildNode(id int, speeds []float64, counts *Counts) *domain.Node {
	c := SyntheticCounts(speeds)
	if counts != nil {
		c = *counts
	}
	trust := c.Trust()

	attrs := domain.NodeAttributes{
		Transitions: domain.EstimateTransitions(speeds),
		Trust:       trust,
		SocialTrust: trust,
		Centrality:  Centrality(speeds),
	}
	if len(speeds) > 0 {
		attrs.Speed = stat.Mean(speeds, nil)
		attrs.State = domain.Classify(speeds[len(speeds)-1])
	}
	return domain.NewNode(id, attrs)
}

// Centrality is 1 minus the mean of the min-max normalised speeds. A trace
// with no spread normalises to all zeros.
func Centrality(speeds []float64) float64 {
	if len(speeds) == 0 {
		return 0
	}
	lo, hi := floats.Min(speeds), floats.Max(speeds)
	span := hi - lo
	if span == 0 {
		return 1
	}
	scaled := make([]float64, len(speeds))
	for i, s := range speeds {
		scaled[i] = (s - lo) / span
	}
	return 1 - stat.Mean(scaled, nil)
}

// SyntheticCounts fabricates an execution history for nodes without one:
// steadier speed traces earn a higher success ratio.
func SyntheticCounts(speeds []float64) Counts {
	variance := 0.0
	if len(speeds) > 0 {
		variance = stat.PopVariance(speeds, nil)
	}
	baseline := max(10, len(speeds))
	ratio := 0.8 - math.Min(0.3, variance/200)
	success := max(5, int(float64(baseline)*ratio))
	failure := max(1, baseline-success)
	return Counts{Success: success, Failure: failure}
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		id:       find(idColumns...),
		speed:    find("speed"),
		distance: find("distance"),
		duration: find("duration"),
		success:  find(successColumns...),
		failure:  find(failureColumns...),
	}
	if cols.id < 0 {
		return cols, fmt.Errorf("%w: one of %s", ErrMissingColumn, strings.Join(idColumns, ", "))
	}
	if cols.speed < 0 && (cols.distance < 0 || cols.duration < 0) {
		return cols, fmt.Errorf("%w: speed, or distance and duration", ErrMissingColumn)
	}
	return cols, nil
}

func rowSpeed(record []string, cols columns) (float64, error) {
	if cols.speed >= 0 {
		return parseFloat("speed", field(record, cols.speed))
	}
	distance, err := parseFloat("distance", field(record, cols.distance))
	if err != nil {
		return 0, err
	}
	duration, err := parseFloat("duration", field(record, cols.duration))
	if err != nil {
		return 0, err
	}
	return distance / (duration + speedEpsilon), nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return int(f), nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(v), nil
}
