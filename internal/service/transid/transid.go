// Package transid генерирует корреляционные идентификаторы транзакций.
// Один и тот же id записывается в леджер и отправляется провайдеру, по нему же
// делается повторный опрос статуса. Генератор общий для всех категорий услуг,
// алфавит настраивается под самого строгого провайдера.
package transid

import (
	"math/rand/v2"
	"strings"
	"time"
)

type Mode string

const (
	// ModeAlphanumeric таймстамп + случайный суффикс, длина 15 символов.
	ModeAlphanumeric Mode = "alphanumeric"
	// ModeDigits только цифры, длина 15 символов. Требование MobileNig.
	ModeDigits Mode = "digits"
)

const (
	timestampLayout = "060102150405"
	suffixLen       = 3
	digitsLen       = 15

	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits     = "0123456789"
)

// New возвращает новый корреляционный id. Длина не превышает 15 символов —
// лимит самого строгого провайдера.
func New(mode Mode) string {
	switch mode {
	case ModeDigits:
		return randomString(digits, digitsLen)
	default:
		return time.Now().Format(timestampLayout) + randomString(upperAlnum, suffixLen)
	}
}

func randomString(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))]) //nolint:gosec
	}
	return b.String()
}
