package valueobject

import (
	"fmt"

	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

// Cents - денежная сумма в минимальных единицах валюты.
type Cents int64

func NewCents(amount int64) (Cents, error) {
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Cents(amount), nil
}

func (c Cents) Int64() int64 {
	return int64(c)
}

// Percent возвращает долю суммы, округлённую вниз до цента.
func (c Cents) Percent(p int) Cents {
	return Cents(int64(c) * int64(p) / 100)
}

func (c Cents) String() string {
	return fmt.Sprintf("%d.%02d", int64(c)/100, int64(c)%100)
}

// RefundPercentage - доля возврата бренду при решении спора.
type RefundPercentage int

func NewRefundPercentage(p int) (RefundPercentage, error) {
	if p < 0 || p > 100 {
		return 0, apperror.New(apperror.ErrCodeValidation, "процент возврата должен быть от 0 до 100")
	}
	return RefundPercentage(p), nil
}
