package auth

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrOperatorNotFound = errors.New("auth: operator not found")
	ErrOperatorExists   = errors.New("auth: operator already exists")
	ErrBadCredentials   = errors.New("auth: bad credentials")
)

// Operator — учётная запись, которой разрешено менять навигатор
type Operator struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

// OperatorRepository хранит операторов
type OperatorRepository interface {
	GetOperator(name string) (*Operator, error)
	CreateOperator(name, passwordHash string) (*Operator, error)
	// Authenticate проверяет пароль и отмечает вход
	Authenticate(name, password string) (*Operator, error)
}

// MemoryOperatorRepo — потокобезопасное хранилище в памяти.
// Имена без учёта регистра.
type MemoryOperatorRepo struct {
	mu        sync.RWMutex
	operators map[string]*Operator
}

// NewMemoryOperatorRepo создаёт хранилище из пар имя → bcrypt-хеш
func NewMemoryOperatorRepo(hashes map[string]string) (*MemoryOperatorRepo, error) {
	repo := &MemoryOperatorRepo{operators: make(map[string]*Operator)}

	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := repo.CreateOperator(name, hashes[name]); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *MemoryOperatorRepo) GetOperator(name string) (*Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operators[normalize(name)]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	return op, nil
}

func (r *MemoryOperatorRepo) CreateOperator(name, passwordHash string) (*Operator, error) {
	key := normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operators[key]; exists {
		return nil, ErrOperatorExists
	}
	op := &Operator{
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.operators[key] = op
	return op, nil
}

func (r *MemoryOperatorRepo) Authenticate(name, password string) (*Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.operators[normalize(name)]
	if !ok || !CheckPassword(op.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	op.LastLogin = time.Now()
	copied := *op
	return &copied, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
