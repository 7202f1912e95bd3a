package vec

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Fixed — число с фиксированной точкой в формате Q32.32.
// Вся арифметика целочисленная, результат одинаков на любой платформе.
type Fixed int64

const (
	fixedFracBits = 32
	fixedFracMask = 1<<fixedFracBits - 1

	// FixedOne представляет 1.0
	FixedOne Fixed = 1 << fixedFracBits
	// FixedHalf представляет 0.5
	FixedHalf Fixed = FixedOne >> 1
)

// FixedFromInt преобразует целое число
func FixedFromInt(i int) Fixed {
	return Fixed(int64(i) << fixedFracBits)
}

// ParseFixed разбирает десятичную строку ("12", "-0.25", "3.125") без плавающей точки
func ParseFixed(s string) (Fixed, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("пустое значение fixed")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseUint(intPart, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("неверная целая часть %q: %w", intPart, err)
	}

	var frac uint64
	if fracPart != "" {
		// Больше 9 знаков не влезает в точность Q32.32, отбрасываем хвост
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		digits, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("неверная дробная часть %q: %w", fracPart, err)
		}
		scale := uint64(1)
		for range fracPart {
			scale *= 10
		}
		frac = (digits << fixedFracBits) / scale
	}

	value := Fixed(whole<<fixedFracBits | frac)
	if negative {
		value = -value
	}
	return value, nil
}

// MustParseFixed как ParseFixed, но паникует на ошибке. Для констант и тестов.
func MustParseFixed(s string) Fixed {
	f, err := ParseFixed(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Add складывает числа
func (f Fixed) Add(other Fixed) Fixed { return f + other }

// Sub вычитает число
func (f Fixed) Sub(other Fixed) Fixed { return f - other }

// Mul умножает с 128-битным промежуточным результатом
func (f Fixed) Mul(other Fixed) Fixed {
	a, negA := f.abs()
	b, negB := other.abs()
	hi, lo := bits.Mul64(a, b)
	res := Fixed(hi<<fixedFracBits | lo>>fixedFracBits)
	if negA != negB {
		return -res
	}
	return res
}

// Div делит число. Деление на ноль паникует, переполнение насыщается.
func (f Fixed) Div(other Fixed) Fixed {
	if other == 0 {
		panic("vec: деление Fixed на ноль")
	}
	a, negA := f.abs()
	b, negB := other.abs()
	hi, lo := a>>fixedFracBits, a<<fixedFracBits
	var res Fixed
	if hi >= b {
		res = Fixed(1<<63 - 1)
	} else {
		q, _ := bits.Div64(hi, lo, b)
		res = Fixed(q)
	}
	if negA != negB {
		return -res
	}
	return res
}

// Floor округляет вниз до целого
func (f Fixed) Floor() int {
	return int(int64(f) >> fixedFracBits)
}

// String реализует fmt.Stringer (до 6 знаков после точки)
func (f Fixed) String() string {
	a, neg := f.abs()
	whole := a >> fixedFracBits
	frac := ((a & fixedFracMask) * 1000000) >> fixedFracBits

	sign := ""
	if neg {
		sign = "-"
	}
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	return sign + strings.TrimRight(fmt.Sprintf("%d.%06d", whole, frac), "0")
}

// MarshalText позволяет хранить Fixed в YAML/JSON строкой
func (f Fixed) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText разбирает десятичную строку
func (f *Fixed) UnmarshalText(text []byte) error {
	v, err := ParseFixed(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Fixed) abs() (uint64, bool) {
	if f < 0 {
		return uint64(-f), true
	}
	return uint64(f), false
}
