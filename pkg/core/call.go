package core

import (
	"time"

	"go.uber.org/zap"
)

// Call runs fn as the named collaborator operation. The attempt, its outcome
// and its duration are logged with the given fields. The error from fn is
// returned unchanged.
func Call(log *zap.Logger, op string, fn func() error, fields ...zap.Field) error {
	_, err := CallValue(log, op, func() (struct{}, error) {
		return struct{}{}, fn()
	}, fields...)
	return err
}

// CallValue is Call for operations that produce a value.
func CallValue[T any](log *zap.Logger, op string, fn func() (T, error), fields ...zap.Field) (T, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(append([]zap.Field{zap.String("op", op)}, fields...)...)

	log.Debug("attempting " + op)
	start := time.Now()
	v, err := fn()
	elapsed := zap.Duration("duration", time.Since(start))
	if err != nil {
		log.Error(op+" failed", elapsed, zap.Error(err))
		return v, err
	}
	log.Info(op+" succeeded", elapsed)
	return v, nil
}
