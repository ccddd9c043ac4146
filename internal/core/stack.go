// Package core holds the ordered interceptor stack behind the root Server.
package core

import (
	"cmp"
	"slices"

	"github.com/fieldline/routecache/interceptors"
	"google.golang.org/grpc"
)

type layer struct {
	order  int
	name   string
	unary  grpc.UnaryServerInterceptor
	stream grpc.StreamServerInterceptor
}

// Stack orders interceptor pairs by priority. Lower orders wrap higher ones;
// equal orders keep the order they were added in.
type Stack struct {
	layers []layer
}

// Add puts a named pair at order. Either interceptor may be nil.
func (s *Stack) Add(order int, name string, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	s.layers = append(s.layers, layer{order: order, name: name, unary: unary, stream: stream})
}

func (s *Stack) sorted() []layer {
	out := slices.Clone(s.layers)
	slices.SortStableFunc(out, func(a, b layer) int {
		return cmp.Compare(a.order, b.order)
	})
	return out
}

// Names lists the layers outermost first.
func (s *Stack) Names() []string {
	layers := s.sorted()
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.name
	}
	return names
}

// Build returns the sorted unary and stream interceptors, skipping nil ones.
func (s *Stack) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	var (
		unary  []grpc.UnaryServerInterceptor
		stream []grpc.StreamServerInterceptor
	)
	for _, l := range s.sorted() {
		if l.unary != nil {
			unary = append(unary, l.unary)
		}
		if l.stream != nil {
			stream = append(stream, l.stream)
		}
	}
	return unary, stream
}

// ServerOptions chains the stack into grpc.NewServer options. An empty stack
// yields no options.
func (s *Stack) ServerOptions() []grpc.ServerOption {
	unary, stream := s.Build()
	var opts []grpc.ServerOption
	if ic := interceptors.ChainUnary(unary); ic != nil {
		opts = append(opts, grpc.UnaryInterceptor(ic))
	}
	if ic := interceptors.ChainStream(stream); ic != nil {
		opts = append(opts, grpc.StreamInterceptor(ic))
	}
	return opts
}
