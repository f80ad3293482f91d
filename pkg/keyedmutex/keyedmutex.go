// Package keyedmutex реализует набор мьютексов, адресуемых ключом
//
// Используется для сериализации мутаций по конкретному ресурсу:
// операции над разными ресурсами идут параллельно, над одним - строго по очереди.
// Мьютексы с нулевым числом ожидающих удаляются из map, чтобы набор не рос бесконечно.
package keyedmutex

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex набор мьютексов по строковому ключу
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New создает пустой KeyedMutex
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock захватывает мьютекс для ключа и возвращает функцию освобождения
//
//	unlock := km.Lock(resourceID)
//	defer unlock()
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
