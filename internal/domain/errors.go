package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	// ErrTransactionSettled транзакция уже переведена в терминальный статус,
	// повторная компенсация запрещена.
	ErrTransactionSettled = errors.New("transaction already settled")
)

// ValidationError провайдер отклонил реквизиты клиента (номер счётчика,
// смарт-карты и т.п.). Денежных эффектов нет.
type ValidationError struct {
	ServiceID string
	Reason    string
}

func NewValidationError(serviceID, reason string) *ValidationError {
	return &ValidationError{ServiceID: serviceID, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("customer validation failed for %s: %s", e.ServiceID, e.Reason)
}

// ConfigurationError ошибка конфигурации ценообразования: вычисленная цена
// продажи не положительна. Запрос отклоняется до резервирования средств.
type ConfigurationError struct {
	ServiceIdentifier string
	Detail            string
}

func NewConfigurationError(serviceIdentifier, detail string) *ConfigurationError {
	return &ConfigurationError{ServiceIdentifier: serviceIdentifier, Detail: detail}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pricing misconfigured for %s: %s", e.ServiceIdentifier, e.Detail)
}
