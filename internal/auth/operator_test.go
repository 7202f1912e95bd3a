package auth

import (
	"errors"
	"testing"
)

// TestOperatorRepo проверяет вход оператора по паролю
func TestOperatorRepo(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Ошибка хеширования: %v", err)
	}
	repo, err := NewMemoryOperatorRepo(map[string]string{"Dispatcher": hash})
	if err != nil {
		t.Fatalf("Ошибка создания хранилища: %v", err)
	}

	op, err := repo.Authenticate("dispatcher", "s3cret")
	if err != nil {
		t.Fatalf("Верный пароль отклонён: %v", err)
	}
	if op.Name != "Dispatcher" || op.LastLogin.IsZero() {
		t.Errorf("Неверный оператор: %+v", op)
	}

	if _, err := repo.Authenticate("dispatcher", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Ожидалась ErrBadCredentials, получено %v", err)
	}
	if _, err := repo.Authenticate("ghost", "s3cret"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Неизвестный оператор должен давать ErrBadCredentials, получено %v", err)
	}
	if _, err := repo.CreateOperator("DISPATCHER", hash); !errors.Is(err, ErrOperatorExists) {
		t.Errorf("Имена сравниваются без регистра, получено %v", err)
	}
	if _, err := repo.GetOperator("nobody"); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Ожидалась ErrOperatorNotFound, получено %v", err)
	}
}
