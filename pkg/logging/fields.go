package logging

import (
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers

func Component(name string) Field {
	return String("component", name)
}

func Tab(id string) Field {
	return String("tab_id", id)
}

func URL(u string) Field {
	return String("url", u)
}

// Pair records both sides of a similarity lookup in normalized order.
func Pair(a, b string) Field {
	if b < a {
		a, b = b, a
	}
	return Field{Key: "pair", Value: [2]string{a, b}}
}

func ClusterID(id int) Field {
	return Int("cluster_id", id)
}

func Score(s float64) Field {
	return Float64("score", s)
}

func Attempt(n int) Field {
	return Int("attempt", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
