package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 30
	MinDisplayNameLength    = 2
	MaxDisplayNameLength    = 100
	MinTitleLength          = 3
	MaxTitleLength          = 200
	MinDescriptionLength    = 10
	MaxDescriptionLength    = 5000
	MaxAddressLength        = 300
	MaxCityLength           = 100
	MaxMessageLength        = 2000
	MaxIDDocumentLength     = 30
	MinPrice                = 0.0
	MaxPrice                = 10000000000.0 // 10 миллиардов
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidatePropertyTitle проверяет заголовок объявления.
func ValidatePropertyTitle(title string) error {
	if err := ValidateNonEmpty("заголовок", title); err != nil {
		return err
	}
	return ValidateLength("заголовок", title, MinTitleLength, MaxTitleLength)
}

// ValidatePropertyDescription проверяет описание объявления.
func ValidatePropertyDescription(description string) error {
	if err := ValidateNonEmpty("описание", description); err != nil {
		return err
	}
	return ValidateLength("описание", description, MinDescriptionLength, MaxDescriptionLength)
}

// ValidatePrice проверяет цену или сумму договора.
func ValidatePrice(price float64) error {
	if price <= MinPrice {
		return fmt.Errorf("цена должна быть положительной")
	}
	if price > MaxPrice {
		return fmt.Errorf("цена превышает допустимый максимум")
	}
	return nil
}

// ValidateIDDocumentNumber проверяет номер удостоверяющего документа.
func ValidateIDDocumentNumber(idNumber string) error {
	idNumber = strings.TrimSpace(idNumber)
	if idNumber == "" {
		return fmt.Errorf("номер документа обязателен")
	}
	if utf8.RuneCountInString(idNumber) > MaxIDDocumentLength {
		return fmt.Errorf("номер документа должен быть не более %d символов", MaxIDDocumentLength)
	}
	idRegex := regexp.MustCompile(`^[A-Za-z0-9 -]+$`)
	if !idRegex.MatchString(idNumber) {
		return fmt.Errorf("номер документа содержит недопустимые символы")
	}
	return nil
}
