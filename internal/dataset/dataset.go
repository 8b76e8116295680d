// Package dataset loads listings and points of interest from flat files into
// an immutable models.Dataset.
package dataset

import (
	"log"

	"nearby-listings/internal/models"
)

// Load reads both files once. Bad records are dropped and counted in the
// dataset's reports; only file-level problems return an error.
func Load(subjectsPath, landmarksPath string) (*models.Dataset, error) {
	subjects, sr, err := LoadSubjects(subjectsPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Subjects %s", sr)

	landmarks, lr, err := LoadLandmarks(landmarksPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Landmarks %s", lr)

	return &models.Dataset{
		Subjects:  subjects,
		Landmarks: landmarks,
		Reports:   []*models.LoadReport{sr, lr},
	}, nil
}
