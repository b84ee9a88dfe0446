package catalog

import (
	"fmt"

	"github.com/limaJavier/studyplan/pkg/model"
)

// rawNode is the map form of a requisite node. Exactly one of Or, And and CP
// must be present.
type rawNode struct {
	Or       []any `mapstructure:"or"`
	And      []any `mapstructure:"and"`
	CP       *int  `mapstructure:"cp"`
	From     []any `mapstructure:"from"`
	Elective bool  `mapstructure:"elective"`
}

type linker struct {
	contents map[string]model.Content
}

// requisite turns the top-level requisite node of a content into a decision.
// A missing node means there is nothing to complete.
func (l *linker) requisite(node any) (*model.Decision, error) {
	if node == nil {
		return nil, nil
	}
	option, err := l.option(node)
	if err != nil {
		return nil, err
	}
	if decision, ok := option.(*model.Decision); ok {
		return decision, nil
	}
	return model.NewAnd(option), nil
}

func (l *linker) option(node any) (model.Option, error) {
	switch value := node.(type) {
	case string:
		content, ok := l.contents[value]
		if !ok {
			return nil, fmt.Errorf("%w: %v", model.ErrUnknownContent, value)
		}
		return content, nil
	case map[string]any:
		return l.decision(value)
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidNode, node)
	}
}

func (l *linker) decision(node map[string]any) (*model.Decision, error) {
	var raw rawNode
	if err := decodeStrict(node, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNode, err)
	}

	present := 0
	for _, key := range []string{"or", "and", "cp"} {
		if _, ok := node[key]; ok {
			present++
		}
	}
	if present != 1 {
		return nil, fmt.Errorf("%w: expected exactly one of or, and, cp", ErrInvalidNode)
	}
	_, isOr := node["or"]
	_, isCP := node["cp"]
	if !isCP && (raw.From != nil || raw.Elective) {
		return nil, fmt.Errorf("%w: from and elective belong to cp nodes", ErrInvalidNode)
	}

	switch {
	case isCP:
		if raw.CP == nil || *raw.CP < 0 {
			return nil, fmt.Errorf("%w: cp needs a non-negative target", ErrInvalidNode)
		}
		options, err := l.options(raw.From)
		if err != nil {
			return nil, err
		}
		if raw.Elective {
			return model.NewElective(*raw.CP, options...), nil
		}
		return model.NewCP(*raw.CP, options...), nil
	case isOr:
		options, err := l.options(raw.Or)
		if err != nil {
			return nil, err
		}
		return model.NewOr(options...), nil
	default:
		options, err := l.options(raw.And)
		if err != nil {
			return nil, err
		}
		return model.NewAnd(options...), nil
	}
}

func (l *linker) options(nodes []any) ([]model.Option, error) {
	options := make([]model.Option, 0, len(nodes))
	for _, node := range nodes {
		option, err := l.option(node)
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	return options, nil
}
