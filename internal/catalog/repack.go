package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// ErrNoVideos is returned when nothing can be repacked.
var ErrNoVideos = errors.New("no video with a video_id to repack")

// Repack spreads videos over packs of near-equal size, assigning pack numbers 1..packs and
// contiguous ranks. A zero seed keeps the input order; any other seed shuffles deterministically.
func Repack(videos []models.Video, packs int, seed uint32) ([]models.Video, error) {
	if packs < 1 {
		return nil, fmt.Errorf("packs must be positive, got %d", packs)
	}
	clean := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if strings.TrimSpace(v.VideoID) != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoVideos
	}

	ordered := shuffle(clean, seed)
	quota := PackSizes(len(ordered), packs)
	buckets := make([][]models.Video, packs)

	idx := 0
	for _, v := range ordered {
		hops := 0
		for len(buckets[idx]) >= quota[idx] && hops < packs {
			idx = (idx + 1) % packs
			hops++
		}
		if len(buckets[idx]) >= quota[idx] {
			return nil, fmt.Errorf("all packs are full, cannot place video %s", v.VideoID)
		}
		v.PackNumber = idx + 1
		v.RankInPack = len(buckets[idx]) + 1
		buckets[idx] = append(buckets[idx], v)
		idx = (idx + 1) % packs
	}

	out := make([]models.Video, 0, len(ordered))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out, nil
}

// PackSizes splits total into packs sizes differing by at most one, larger packs first.
func PackSizes(total, packs int) []int {
	if packs < 1 {
		return nil
	}
	base := total / packs
	rem := total - base*packs
	sizes := make([]int, packs)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

func shuffle(videos []models.Video, seed uint32) []models.Video {
	out := slices.Clone(videos)
	if seed == 0 {
		return out
	}
	next := xorshift32(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func xorshift32(seed uint32) func() float64 {
	x := seed
	return func() float64 {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		return float64(x) / float64(1<<32)
	}
}
