// Package validation проверяет свободный текст, который присылают стороны бронирования.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

const (
	MaxServiceTitleLength       = 200
	MaxServiceDescriptionLength = 5000
	MaxBriefLength              = 5000
	MaxRevisionNotesLength      = 2000
	MaxDisputeReasonLength      = 2000
	MaxEvidenceLength           = 10000
	MaxResponseLength           = 5000
	MaxDecisionReasonLength     = 5000
	MaxFileNameLength           = 255
	MaxFileDescriptionLength    = 500
)

// ValidateLength проверяет длину в символах. min = 0 разрешает пустую строку.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("поле \"%s\" должно быть не короче %d символов", fieldName, min))
	}
	if max > 0 && length > max {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("поле \"%s\" должно быть не длиннее %d символов", fieldName, max))
	}
	return nil
}

// ValidateText обрезает пробелы и проверяет длину. Возвращает очищенное значение.
func ValidateText(fieldName, value string, required bool, max int) (string, error) {
	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("поле \"%s\" обязательно", fieldName))
	}
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// ValidateFileName отсекает пустые имена, управляющие символы и разделители пути.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.New(apperror.ErrCodeValidation, "имя файла обязательно")
	}
	if err := ValidateLength("имя файла", name, 0, MaxFileNameLength); err != nil {
		return err
	}
	if !utf8.ValidString(name) || strings.ContainsAny(name, "/\\\x00") {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("недопустимое имя файла %q", name))
	}
	for _, r := range name {
		if r < 0x20 {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("недопустимое имя файла %q", name))
		}
	}
	return nil
}
