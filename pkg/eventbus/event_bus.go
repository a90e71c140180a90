// Package eventbus dispatches published values to every subscribed function
// whose parameter list matches them.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = errors.New("eventbus: no matching subscribers")
	ErrInvalidHandlerReturn = errors.New("eventbus: invalid handler return signature")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type bus struct {
	log *logrus.Entry

	mu       sync.RWMutex
	handlers []any
}

// New returns a bus. log may be nil.
func New(log *logrus.Entry) EventBus {
	return &bus{log: log}
}

// MatchSignature reports whether handler is a function taking exactly args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			switch param.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice:
				continue
			default:
				return false
			}
		}
		argType := reflect.TypeOf(arg)
		if param.Kind() == reflect.Interface {
			if !argType.Implements(param) {
				return false
			}
			continue
		}
		if !argType.AssignableTo(param) {
			return false
		}
	}
	return true
}

func values(t reflect.Type, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(t.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func (b *bus) matching(args []any) []any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []any
	for _, h := range b.handlers {
		if MatchSignature(h, args) {
			out = append(out, h)
		}
	}
	return out
}

// call invokes handler and converts a panic or a non-nil error return into
// an error.
func call(handler any, args []any) (err error) {
	v := reflect.ValueOf(handler)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", v.Type(), r)
		}
	}()
	out := v.Call(values(v.Type(), args))
	switch len(out) {
	case 0:
		return nil
	case 1:
		if out[0].Type() != errorType {
			return fmt.Errorf("%w: handler %s returns %s", ErrInvalidHandlerReturn, v.Type(), out[0].Type())
		}
		if out[0].IsNil() {
			return nil
		}
		return out[0].Interface().(error)
	default:
		return fmt.Errorf("%w: handler %s returns %d values", ErrInvalidHandlerReturn, v.Type(), len(out))
	}
}

// Publish delivers args to every matching handler. Handler failures are
// logged, never returned.
func (b *bus) Publish(args ...any) {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		if b.log != nil {
			b.log.Debugf("eventbus.Publish: no matching subscribers for %T", firstArg(args))
		}
		return
	}
	for _, h := range handlers {
		if err := call(h, args); err != nil && b.log != nil {
			b.log.WithError(err).Error("eventbus.Publish: handler failed")
		}
	}
}

// PublishE delivers args to every matching handler and joins their errors.
func (b *bus) PublishE(args ...any) error {
	handlers := b.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, h := range handlers {
		if err := call(h, args); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *bus) Subscribe(handler any) {
	if t := reflect.TypeOf(handler); t == nil || t.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Unsubscribe removes the first handler sharing handler's code pointer.
// Closures created from the same function literal are indistinguishable.
func (b *bus) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if reflect.ValueOf(h).Pointer() == ptr {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
