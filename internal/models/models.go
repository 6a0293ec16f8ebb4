// models содержит доменные сущности блога: User, Post, Like, Comment.
// Эти типы общие для всех адаптеров хранилища (PostgreSQL, MongoDB) и кэша.
//
// Особенности:
//   - ID назначается хранилищем (BIGSERIAL / коллекция counters) и после создания не меняется;
//   - временные метки — UTC с точностью до миллисекунды (столько хранит MongoDB);
//   - уникальность username/email/slug проверяет хранилище, а не конструкторы.
package models

import (
	"errors"
	"time"
)

// ErrValidation — нарушены требования к обязательным полям сущности.
var ErrValidation = errors.New("validation failed")

// now — единая точка получения времени для конструкторов.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
