package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// SidecarExt расширение файла с метаданными одежды
const SidecarExt = ".json"

// MetadataLookup читает cloth_type из JSON рядом с фото одежды
type MetadataLookup struct {
	schema *gojsonschema.Schema
}

// NewMetadataLookup компилирует схему метаданных
func NewMetadataLookup() (*MetadataLookup, error) {
	enum := make([]interface{}, 0, len(entity.ClothTypes))
	for _, c := range entity.ClothTypes {
		enum = append(enum, string(c))
	}
	schemaMap := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"cloth_type"},
		"properties": map[string]interface{}{
			"cloth_type": map[string]interface{}{
				"type": "string",
				"enum": enum,
			},
		},
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &MetadataLookup{schema: schema}, nil
}

// SidecarPath заменяет расширение фото одежды на .json
func SidecarPath(garmentPath string) string {
	return entity.StripExt(garmentPath) + SidecarExt
}

// ClothType возвращает категорию одежды из метаданных
func (l *MetadataLookup) ClothType(ctx context.Context, garmentPath string) (entity.ClothType, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := SidecarPath(garmentPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %w", entity.ErrSidecarNotFound, path, err)
		}
		return "", fmt.Errorf("%w: %s: %w", entity.ErrMetadataInvalid, path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: %s: %w", entity.ErrMetadataInvalid, path, err)
	}

	record, ok := doc.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: %s: expected a JSON object", entity.ErrMetadataInvalid, path)
	}

	switch v, present := record["cloth_type"]; {
	case present && v == nil:
		return "", fmt.Errorf("%w: %s: cloth_type is null", entity.ErrClothTypeMissing, path)
	case present:
		if s, ok := v.(string); ok {
			record["cloth_type"] = strings.TrimSpace(s)
		}
	}

	result, err := l.schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", entity.ErrMetadataInvalid, path, err)
	}
	if !result.Valid() {
		return "", schemaError(path, result.Errors())
	}

	// после валидации схемы значение гарантированно строка из перечисления
	return entity.ParseClothType(record["cloth_type"].(string))
}

// schemaError сводит ошибки схемы к доменным ошибкам
func schemaError(path string, errs []gojsonschema.ResultError) error {
	msgs := make([]string, len(errs))
	kinds := make(map[string]bool, len(errs))
	for i, desc := range errs {
		msgs[i] = desc.String()
		kinds[desc.Type()] = true
	}

	sentinel := entity.ErrMetadataInvalid
	switch {
	case kinds["required"]:
		sentinel = entity.ErrClothTypeMissing
	case kinds["invalid_type"]:
		sentinel = entity.ErrMetadataInvalid
	case kinds["enum"]:
		sentinel = entity.ErrUnknownClothType
	}
	return fmt.Errorf("%w: %s: %s", sentinel, path, strings.Join(msgs, "; "))
}

var _ port.MetadataLookup = (*MetadataLookup)(nil)
