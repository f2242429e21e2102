package ecs

import "reflect"

// TypeOf returns the component key of T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func Get[T any](s *Store, e Entity) (T, bool) {
	c, ok := s.Component(e, TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return c.(T), true
}

func Has[T any](s *Store, e Entity) bool {
	return s.HasType(e, TypeOf[T]())
}

func DetachType[T any](s *Store, e Entity) bool {
	return s.Detach(e, TypeOf[T]())
}

// Singleton returns the component of the single entity carrying T. If more
// than one entity carries T, the oldest one wins.
func Singleton[T any](s *Store) (T, bool) {
	for e := range s.Query(TypeOf[T]()) {
		return Get[T](s, e)
	}
	var zero T
	return zero, false
}

// SingletonEntity returns the oldest entity carrying T.
func SingletonEntity[T any](s *Store) (Entity, bool) {
	for e := range s.Query(TypeOf[T]()) {
		return e, true
	}
	return 0, false
}
