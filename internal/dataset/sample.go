package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ZanzyTHEbar/vfogsim/internal/utils"
)

// SpeedProfile describes the speed distribution of a simulated vehicle.
type SpeedProfile struct {
	Mean float64
	Std  float64
}

// SampleProfiles are assigned to vehicles 1..5; later vehicles reuse the last one.
var SampleProfiles = []SpeedProfile{
	{Mean: 45, Std: 5},  // moderate, consistent
	{Mean: 65, Std: 8},  // fast, consistent
	{Mean: 95, Std: 15}, // very fast, erratic
	{Mean: 35, Std: 3},  // slow, very consistent
	{Mean: 75, Std: 10}, // moderate-fast
}

const minSampleSpeed = 10.0

var sampleHeader = []string{"vehicle_id", "timestamp", "latitude", "longitude", "distance", "duration", "speed"}

// GenerateSample writes a Porto-style trajectory dataset with the given number
// of vehicles and records per vehicle. The output depends only on seed.
func GenerateSample(w io.Writer, vehicles, records int, seed uint64) error {
	if vehicles < 1 || records < 1 {
		return fmt.Errorf("sample needs at least one vehicle and one record, got %d and %d", vehicles, records)
	}

	src := rand.NewPCG(seed, seed^0x5851f42d4c957f2d)
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}

	out := csv.NewWriter(w)
	if err := out.Write(sampleHeader); err != nil {
		return err
	}

	for v := 1; v <= vehicles; v++ {
		p := SampleProfiles[min(v, len(SampleProfiles))-1]
		speedDist := distuv.Normal{Mu: p.Mean, Sigma: p.Std, Src: src}

		for i := 0; i < records; i++ {
			speed := math.Max(minSampleSpeed, speedDist.Rand())
			distance := speed * (0.5 + 1.5*unit.Rand())
			duration := distance / (speed + speedEpsilon)
			lat := 41.15 + (unit.Rand()*0.2 - 0.1)
			lon := -8.61 + (unit.Rand()*0.2 - 0.1)

			row := []string{
				strconv.Itoa(v),
				strconv.Itoa(1000 + i*60),
				strconv.FormatFloat(lat, 'f', 6, 64),
				strconv.FormatFloat(lon, 'f', 6, 64),
				strconv.FormatFloat(distance, 'f', 3, 64),
				strconv.FormatFloat(duration, 'f', 4, 64),
				strconv.FormatFloat(speed, 'f', 2, 64),
			}
			if err := out.Write(row); err != nil {
				return err
			}
		}
	}

	out.Flush()
	return out.Error()
}

// WriteSample generates a sample dataset into path.
func WriteSample(path string, vehicles, records int, seed uint64) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return fmt.Errorf("create sample directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sample dataset: %w", err)
	}
	if err := GenerateSample(f, vehicles, records, seed); err != nil {
		f.Close()
		return fmt.Errorf("write sample dataset: %w", err)
	}
	return f.Close()
}
