package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EventConfig is one named event with its raw date strings.
type EventConfig struct {
	Name  string   `yaml:"name" json:"name"`
	Dates DateList `yaml:"dates" json:"dates"`
}

// DateList accepts either a single string or a list of strings.
type DateList []string

func (d *DateList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*d = DateList{n.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return err
		}
		*d = list
		return nil
	default:
		return fmt.Errorf("line %d: dates must be a string or a list", n.Line)
	}
}

func (d DateList) MarshalYAML() (any, error) {
	if len(d) == 1 {
		return d[0], nil
	}
	return []string(d), nil
}

// Events keeps declaration order, which breaks ties between events of the
// same priority. It reads either a mapping
//
//	events:
//	  Trip|Italy: 12.08.2019
//	  Christmas: [24.12.x-26.12.x]
//
// or a list of {name, dates} entries.
type Events []EventConfig

func (e *Events) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		out := make(Events, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			var dates DateList
			if err := val.Decode(&dates); err != nil {
				return fmt.Errorf("event %q: %w", key.Value, err)
			}
			out = append(out, EventConfig{Name: key.Value, Dates: dates})
		}
		*e = out
		return nil
	case yaml.SequenceNode:
		var list []EventConfig
		if err := n.Decode(&list); err != nil {
			return err
		}
		*e = list
		return nil
	case yaml.ScalarNode:
		// "events:" with no value.
		*e = Events{}
		return nil
	default:
		return fmt.Errorf("line %d: events must be a mapping or a list", n.Line)
	}
}

func (e Events) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ev := range e {
		var val yaml.Node
		if err := val.Encode(ev.Dates); err != nil {
			return nil, fmt.Errorf("event %q: %w", ev.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: ev.Name}, &val)
	}
	return node, nil
}
