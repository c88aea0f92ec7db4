package handlers

import (
	"fmt"

	"github.com/Kelvintronic/inhabited/pkg/api"
)

// TypedHandlerFunc - "чистый" обработчик, который получает готовый пакет T.
type TypedHandlerFunc[T api.Packet] func(peer byte, p T) error

// WithPacket превращает типизированный обработчик в HandlerFunc.
// Разбор кадра и валидация (api.Unmarshal вызывает Validate) делаются
// здесь, до вызова логики.
func WithPacket[T api.Packet](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(peer byte, frame []byte) error {
		// 1. Распаковка и валидация
		p, err := api.Unmarshal(frame)
		if err != nil {
			return fmt.Errorf("invalid packet from peer %d: %w", peer, err)
		}

		// 2. Приведение к ожидаемому типу
		typed, ok := p.(T)
		if !ok {
			return fmt.Errorf("peer %d sent %T: %w", peer, p, ErrUnexpectedPacket)
		}

		// 3. Вызов логики
		return handler(peer, typed)
	}
}
