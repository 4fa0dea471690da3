package emitter

import "log/slog"

func NewKafkaSinkWithWriter(w messageWriter, topic string, batch int, log *slog.Logger) *KafkaSink {
	s := newKafkaSink(w, topic, log)
	s.batch = batch
	return s
}
