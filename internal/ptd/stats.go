package ptd

import (
	"context"
	"io"
)

// binInterval is the spacing in milliseconds of the time tags that open a statistics bin.
const binInterval = 1000

// Bin counts the events following a whole-second time tag.
type Bin struct {
	Second  float64 `json:"t"`
	Prompts int64   `json:"prompts"`
	Delays  int64   `json:"delays"`
}

// Statistics is the per-second prompt and delay histogram of an event stream.
type Statistics struct {
	Bins     []Bin    `json:"bins"`
	Counters Counters `json:"counters"`
}

// CollectStatistics counts prompts and delays per second of acquisition. Events before the first
// time tag fall in the bin at 0 s; a repeated time marker reuses its bin.
func CollectStatistics(ctx context.Context, r *WordReader, progress ProgressFunc) (*Statistics, error) {
	r.WithContext(ctx)

	stats := &Statistics{Bins: []Bin{{}}}
	index := map[uint32]int{0: 0}
	current := 0
	for {
		word, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, err
		}

		class := Classify(word)
		if class.Tag {
			stats.Counters.TagWords++
			if !class.TimeMarker || class.Millis == 0 || class.Millis%binInterval != 0 {
				continue
			}
			second := class.Millis / binInterval
			i, ok := index[second]
			if !ok {
				i = len(stats.Bins)
				index[second] = i
				stats.Bins = append(stats.Bins, Bin{Second: float64(second)})
			}
			current = i
			if progress != nil && class.Millis%progressInterval == 0 {
				progress(class.Elapsed())
			}
			continue
		}

		stats.Counters.EventWords++
		if class.Prompt {
			stats.Counters.Prompts++
			stats.Bins[current].Prompts++
		} else {
			stats.Counters.Delays++
			stats.Bins[current].Delays++
		}
	}
}
