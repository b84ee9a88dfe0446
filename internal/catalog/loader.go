package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateCode   = errors.New("duplicate content code")
	ErrInvalidNode     = errors.New("invalid requisite node")
	ErrUnsupportedFile = errors.New("unsupported catalogue format")
)

type rawSubject struct {
	Code          string   `mapstructure:"code"`
	Name          string   `mapstructure:"name"`
	CreditPoints  int      `mapstructure:"creditPoints"`
	Offered       []string `mapstructure:"offered"`
	Level         int      `mapstructure:"level"`
	NCCW          []string `mapstructure:"nccw"`
	Prerequisites any      `mapstructure:"prerequisites"`
	Corequisites  any      `mapstructure:"corequisites"`
}

type rawCourse struct {
	Code          string   `mapstructure:"code"`
	Name          string   `mapstructure:"name"`
	Kind          string   `mapstructure:"kind"`
	NCCW          []string `mapstructure:"nccw"`
	Prerequisites any      `mapstructure:"prerequisites"`
	Corequisites  any      `mapstructure:"corequisites"`
}

type rawCatalog struct {
	Subjects []rawSubject `mapstructure:"subjects"`
	Courses  []rawCourse  `mapstructure:"courses"`
}

// Load reads a catalogue from a .json, .yaml or .yml file.
func Load(path string) (*Catalog, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(bytes)
	case ".yaml", ".yml":
		return ParseYAML(bytes)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, path)
	}
}

func ParseJSON(bytes []byte) (*Catalog, error) {
	var document map[string]any
	if err := json.Unmarshal(bytes, &document); err != nil {
		return nil, fmt.Errorf("parsing json catalogue: %w", err)
	}
	return Decode(document)
}

func ParseYAML(bytes []byte) (*Catalog, error) {
	var document map[string]any
	if err := yaml.Unmarshal(bytes, &document); err != nil {
		return nil, fmt.Errorf("parsing yaml catalogue: %w", err)
	}
	return Decode(document)
}

// Decode links a generic catalogue document (as produced by a json or yaml
// unmarshaller) into a Catalog.
func Decode(document map[string]any) (*Catalog, error) {
	var raw rawCatalog
	if err := decodeStrict(document, &raw); err != nil {
		return nil, fmt.Errorf("decoding catalogue: %w", err)
	}

	//** Create contents
	contents := make(map[string]model.Content)
	subjects := make([]*model.Subject, 0, len(raw.Subjects))
	for _, entry := range raw.Subjects {
		if entry.Code == "" {
			return nil, errors.New("subject without code")
		}
		if _, ok := contents[entry.Code]; ok {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateCode, entry.Code)
		}
		if entry.CreditPoints < 0 {
			return nil, fmt.Errorf("subject %v has negative credit points", entry.Code)
		}
		offered := make([]model.Session, 0, len(entry.Offered))
		for _, value := range entry.Offered {
			session, err := model.ParseSession(value)
			if err != nil {
				return nil, fmt.Errorf("subject %v: %w", entry.Code, err)
			}
			offered = append(offered, session)
		}
		subject := model.NewSubject(entry.Code, entry.Name, entry.CreditPoints, offered, entry.Level, entry.NCCW)
		contents[entry.Code] = subject
		subjects = append(subjects, subject)
	}

	courses := make([]*model.Course, 0, len(raw.Courses))
	for _, entry := range raw.Courses {
		if entry.Code == "" {
			return nil, errors.New("course without code")
		}
		if _, ok := contents[entry.Code]; ok {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateCode, entry.Code)
		}
		kind := model.CourseKind(strings.ToLower(entry.Kind))
		if !lo.Contains([]model.CourseKind{"", model.Qualification, model.Major, model.Minor}, kind) {
			return nil, fmt.Errorf("course %v has unknown kind %q", entry.Code, entry.Kind)
		}
		course := model.NewCourse(entry.Code, entry.Name, kind, entry.NCCW)
		contents[entry.Code] = course
		courses = append(courses, course)
	}

	//** Link requisites and exclusions
	linker := &linker{contents: contents}
	link := func(content model.Content, nccws []string, prerequisites, corequisites any) error {
		for _, code := range nccws {
			if _, ok := contents[code]; !ok {
				return fmt.Errorf("%v excludes %v: %w", content.Code(), code, model.ErrUnknownContent)
			}
		}
		pre, err := linker.requisite(prerequisites)
		if err != nil {
			return fmt.Errorf("prerequisites of %v: %w", content.Code(), err)
		}
		co, err := linker.requisite(corequisites)
		if err != nil {
			return fmt.Errorf("corequisites of %v: %w", content.Code(), err)
		}
		content.SetRequisites(pre, co)
		return nil
	}
	for index, entry := range raw.Subjects {
		if err := link(subjects[index], entry.NCCW, entry.Prerequisites, entry.Corequisites); err != nil {
			return nil, err
		}
	}
	for index, entry := range raw.Courses {
		if err := link(courses[index], entry.NCCW, entry.Prerequisites, entry.Corequisites); err != nil {
			return nil, err
		}
	}

	return newCatalog(subjects, courses), nil
}

func decodeStrict(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
