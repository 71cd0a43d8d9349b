// Package store provides in-memory storage for named expressions.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Expression is a stored computed-column definition.
type Expression struct {
	Name        string    `json:"name"`
	UID         string    `json:"uid"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
	Columns     []string  `json:"columns"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// Store is a thread-safe in-memory storage for expressions. Callers get
// copies; mutating a returned Expression does not change the store.
type Store struct {
	mu          sync.RWMutex
	expressions map[string]*Expression

	// Counter for generating revision IDs
	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		expressions: make(map[string]*Expression),
	}
}

// Create stores a new expression.
func (s *Store) Create(name, source, description string, columns []string) (Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expressions[name]; exists {
		return Expression{}, fmt.Errorf("expression '%s': %w", name, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	e := &Expression{
		Name:        name,
		UID:         uuid.NewString(),
		Description: description,
		Source:      source,
		Columns:     append([]string{}, columns...),
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
	}
	s.expressions[name] = e
	return e.copy(), nil
}

// Get retrieves an expression by name.
func (s *Store) Get(name string) (Expression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expressions[name]
	if !ok {
		return Expression{}, fmt.Errorf("expression '%s': %w", name, ErrNotFound)
	}
	return e.copy(), nil
}

// List returns all expressions sorted by name.
func (s *Store) List() []Expression {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Expression, 0, len(s.expressions))
	for _, e := range s.expressions {
		result = append(result, e.copy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Update replaces an expression's source and bumps its revision. An empty
// description keeps the current one.
func (s *Store) Update(name, source, description string, columns []string) (Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expressions[name]
	if !ok {
		return Expression{}, fmt.Errorf("expression '%s': %w", name, ErrNotFound)
	}

	s.revCounter++
	e.Source = source
	e.Columns = append([]string{}, columns...)
	if description != "" {
		e.Description = description
	}
	e.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	e.UpdateTime = time.Now()

	return e.copy(), nil
}

// Delete removes an expression.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expressions[name]; !ok {
		return fmt.Errorf("expression '%s': %w", name, ErrNotFound)
	}
	delete(s.expressions, name)
	return nil
}

func (e *Expression) copy() Expression {
	c := *e
	c.Columns = append([]string{}, e.Columns...)
	return c
}
