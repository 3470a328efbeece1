// Package catalog holds the static video catalog and the pure query pipeline over it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// Store is the immutable, ordered catalog loaded once per process.
type Store struct {
	videos   []models.Video
	students []models.Student
	byID     map[string]int
	packs    []int
}

// Load reads the video and student datasets from JSON files.
func Load(videosPath, studentsPath string) (*Store, error) {
	videos, err := ReadVideos(videosPath)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	var students []models.Student
	if studentsPath != "" {
		if err := readJSON(studentsPath, &students); err != nil {
			return nil, fmt.Errorf("load students: %w", err)
		}
	}
	return New(videos, students)
}

// New builds a Store from in-memory records, keeping their order.
func New(videos []models.Video, students []models.Student) (*Store, error) {
	s := &Store{
		videos:   slices.Clone(videos),
		students: slices.Clone(students),
		byID:     make(map[string]int, len(videos)),
	}
	seen := make(map[int]struct{})
	for i, v := range s.videos {
		if strings.TrimSpace(v.VideoID) == "" {
			return nil, fmt.Errorf("video at index %d has no video_id", i)
		}
		if v.PackNumber < 1 {
			return nil, fmt.Errorf("video %s has invalid pack_number %d", v.VideoID, v.PackNumber)
		}
		if v.DurationS < 0 {
			return nil, fmt.Errorf("video %s has negative duration", v.VideoID)
		}
		// first occurrence wins for lookups; duplicates stay in the sequence
		if _, ok := s.byID[v.VideoID]; !ok {
			s.byID[v.VideoID] = i
		}
		if _, ok := seen[v.PackNumber]; !ok {
			seen[v.PackNumber] = struct{}{}
			s.packs = append(s.packs, v.PackNumber)
		}
	}
	slices.Sort(s.packs)
	return s, nil
}

// ReadVideos decodes a video dataset without validating it.
func ReadVideos(path string) ([]models.Video, error) {
	var videos []models.Video
	if err := readJSON(path, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func readJSON(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Videos returns the catalog in load order. The returned slice is a copy.
func (s *Store) Videos() []models.Video {
	return slices.Clone(s.videos)
}

// Students returns the student roster in load order.
func (s *Store) Students() []models.Student {
	return slices.Clone(s.students)
}

// Len is the number of catalog entries.
func (s *Store) Len() int {
	return len(s.videos)
}

// FindVideo looks a video up by id.
func (s *Store) FindVideo(id string) (models.Video, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return models.Video{}, false
	}
	return s.videos[idx], true
}

// Has reports whether the id exists in the catalog.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Packs returns the distinct pack numbers in ascending order.
func (s *Store) Packs() []int {
	return slices.Clone(s.packs)
}

// StudentByPack returns the first student assigned to the pack.
func (s *Store) StudentByPack(pack int) (models.Student, bool) {
	for _, st := range s.students {
		if st.PackNumber == pack {
			return st, true
		}
	}
	return models.Student{}, false
}

// VideoIDs lists ids of the whole catalog, or of one pack when pack is set.
func (s *Store) VideoIDs(pack *int) []string {
	ids := make([]string, 0, len(s.videos))
	for _, v := range FilterByPack(s.videos, pack) {
		ids = append(ids, v.VideoID)
	}
	return ids
}
