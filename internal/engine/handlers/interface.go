package handlers

import (
	"errors"
	"fmt"

	"github.com/Kelvintronic/inhabited/pkg/api"
)

var (
	// ErrNoRoute - для заголовка кадра не зарегистрирован обработчик.
	ErrNoRoute = errors.New("no handler for packet")
	// ErrUnexpectedPacket - кадр разобрался не в тот тип, что ждал обработчик.
	ErrUnexpectedPacket = errors.New("unexpected packet type")
)

// HandlerFunc - контракт обработчика входящего кадра от пира.
// Обработчик сам не пишет в лог: ошибку логирует вызывающий.
type HandlerFunc func(peer byte, frame []byte) error

// Router выбирает обработчик по заголовку кадра (тип и, для
// Serialized, вид сообщения).
type Router struct {
	routes map[api.Header]HandlerFunc
}

func NewRouter() *Router {
	return &Router{routes: make(map[api.Header]HandlerFunc)}
}

// Handle регистрирует обработчик. Повторная регистрация заменяет старый.
func (r *Router) Handle(h api.Header, fn HandlerFunc) {
	r.routes[h] = fn
}

// Has - есть ли обработчик для заголовка.
func (r *Router) Has(h api.Header) bool {
	_, ok := r.routes[h]
	return ok
}

// Dispatch разбирает заголовок и передаёт кадр обработчику.
func (r *Router) Dispatch(peer byte, frame []byte) error {
	h, err := api.PeekHeader(frame)
	if err != nil {
		return err
	}
	fn, ok := r.routes[h]
	if !ok {
		return fmt.Errorf("%s/%d: %w", h.Type, h.Kind, ErrNoRoute)
	}
	return fn(peer, frame)
}

// Route - заголовок обычного пакета.
func Route(t api.PacketType) api.Header { return api.Header{Type: t} }

// MessageRoute - заголовок сообщения внутри Serialized-кадра.
func MessageRoute(k api.MessageKind) api.Header {
	return api.Header{Type: api.PacketSerialized, Kind: k}
}
