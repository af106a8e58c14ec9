package detection_test

import (
	"fmt"

	"textalert/internal/detection"
	"textalert/pkg/models"
)

// ExampleFindLabel shows the exact, first-match label lookup used before
// text extraction.
func ExampleFindLabel() {
	labels := []models.Label{
		{Name: "Poster", Confidence: 91.2},
		{Name: "text", Confidence: 88},
		{Name: "Text", Confidence: 97.5},
		{Name: "Text", Confidence: 60},
	}

	label, found := detection.FindLabel(labels, detection.DefaultTextLabel)
	fmt.Println(found, label.Name, label.Confidence)

	_, found = detection.FindLabel(labels, "Person")
	fmt.Println(found)

	// Output:
	// true Text 97.5
	// false
}
