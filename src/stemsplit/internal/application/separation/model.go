package separation

import (
	"strings"

	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type ModelID string

const (
	Balanced             ModelID = "balanced"
	FineTunedHighQuality ModelID = "fine-tuned-high-quality"
	AlternativeAlgorithm ModelID = "alternative-algorithm"
)

type Footprint string

const (
	StandardFootprint Footprint = "standard"
	LargeFootprint    Footprint = "large"
)

type Descriptor struct {
	ID         ModelID
	EngineName string
	Footprint  Footprint
}

var descriptors = map[ModelID]Descriptor{
	Balanced: {
		ID:         Balanced,
		EngineName: "htdemucs",
		Footprint:  StandardFootprint,
	},
	FineTunedHighQuality: {
		ID:         FineTunedHighQuality,
		EngineName: "htdemucs_ft",
		Footprint:  LargeFootprint,
	},
	AlternativeAlgorithm: {
		ID:         AlternativeAlgorithm,
		EngineName: "mdx_extra",
		Footprint:  LargeFootprint,
	},
}

// ParseModelID accepts the identifiers and the engine's own names for them.
func ParseModelID(value string) (ModelID, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return Balanced, nil
	}

	for id, descriptor := range descriptors {
		if normalized == string(id) || normalized == descriptor.EngineName {
			return id, nil
		}
	}

	return "", cerr.Field("model", value).
		Mark(stemerrors.InputMark).
		Error("Model must be one of balanced, fine-tuned-high-quality, alternative-algorithm")
}

func Describe(id ModelID) (Descriptor, error) {
	descriptor, ok := descriptors[id]
	if !ok {
		return Descriptor{}, cerr.Field("model", id).
			Mark(stemerrors.ModelLoadMark).
			Error("Unknown model identifier")
	}

	return descriptor, nil
}
