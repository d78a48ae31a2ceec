// Package expertfinder exposes expert finding queries over gRPC.
package expertfinder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/odit-bit/expertfinder/logger"
	"github.com/odit-bit/expertfinder/socialgraph"
)

// Finder answers a query with the best resources of the best users.
type Finder interface {
	Find(ctx context.Context, query string) ([]socialgraph.Resource, error)
}

// StatsReader reports the crawl progress.
type StatsReader interface {
	Stats(ctx context.Context) (socialgraph.Stats, error)
}

type Server struct {
	Port   int
	Finder Finder
	Graph  StatsReader
	Logger *zap.Logger
}

// ListenAndServe serves on Port until ctx is done or the process receives
// SIGINT or SIGTERM.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	listen, err := net.Listen("tcp", fmt.Sprintf(":%d", srv.Port))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done, then stops
// gracefully.
func (srv *Server) Serve(ctx context.Context, listen net.Listener) error {
	log := logger.OrNop(srv.Logger)

	grpcServer := grpc.NewServer()
	RegisterFinderServer(grpcServer, NewFinderServer(srv.Finder, srv.Graph, log))

	log.Info("listen", zap.String("addr", listen.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listen)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	grpcServer.GracefulStop()
	if err := <-serveErr; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	log.Info("server stopped")
	return nil
}

//================

var _ FinderServer = (*finderServer)(nil)

type finderServer struct {
	finder Finder
	stats  StatsReader
	log    *zap.Logger
}

func NewFinderServer(finder Finder, stats StatsReader, log *zap.Logger) FinderServer {
	return &finderServer{
		finder: finder,
		stats:  stats,
		log:    logger.OrNop(log),
	}
}

// Find implements FinderServer.
func (srv *finderServer) Find(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	query := strings.TrimSpace(req.GetValue())
	if query == "" {
		return nil, status.Error(codes.InvalidArgument, "empty query")
	}

	resources, err := srv.finder.Find(ctx, query)
	if err != nil {
		srv.log.Error("find failed", zap.String("query", query), zap.Error(err))
		return nil, toStatus(err)
	}

	res := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(resources))}
	for i := range resources {
		res.Values = append(res.Values, resultValue(&resources[i]))
	}
	return res, nil
}

// Stats implements FinderServer.
func (srv *finderServer) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := srv.stats.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUsers:          structpb.NewNumberValue(float64(stats.Users)),
		fieldCompletedUsers: structpb.NewNumberValue(float64(stats.CompletedUsers)),
		fieldResources:      structpb.NewNumberValue(float64(stats.Resources)),
	}}, nil
}

func resultValue(r *socialgraph.Resource) *structpb.Value {
	fields := map[string]*structpb.Value{
		fieldID:         structpb.NewStringValue(r.ID.String()),
		fieldNetwork:    structpb.NewStringValue(r.Network),
		fieldExternalID: structpb.NewStringValue(r.ExternalID),
		fieldURL:        structpb.NewStringValue(r.URL),
		fieldText:       structpb.NewStringValue(r.Text),
	}
	if loc := r.Location; loc != nil {
		fields[fieldLocation] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldName: structpb.NewStringValue(loc.Name),
			fieldLat:  structpb.NewNumberValue(loc.Lat),
			fieldLon:  structpb.NewNumberValue(loc.Lon),
		}})
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, socialgraph.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
