package logging

import "time"

func String(key, value string) Field             { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Duration(key string, d time.Duration) Field { return Field{key, d.String()} }

// Error records err under "error"; a nil err logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{"error", nil}
	}
	return Field{"error", err.Error()}
}

// Keys shared by the engine, offload and server logs.

func Component(name string) Field   { return String("component", name) }
func RunID(id string) Field         { return String("run_id", id) }
func Iteration(n int) Field         { return Int("iteration", n) }
func Remaining(n int) Field         { return Int("remaining", n) }
func Nodes(n int) Field             { return Int("nodes", n) }
func Edges(n int) Field             { return Int("edges", n) }
func Addr(addr string) Field        { return String("addr", addr) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
