package expertfinder

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/odit-bit/expertfinder/socialgraph"
)

var (
	_ Finder      = (*Client)(nil)
	_ StatsReader = (*Client)(nil)
)

// Client implements Finder and StatsReader by delegating to a Finder
// service exposed by a remote gRPC server.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Find implements Finder.
func (cli *Client) Find(ctx context.Context, query string) ([]socialgraph.Resource, error) {
	res := new(structpb.ListValue)
	if err := cli.conn.Invoke(ctx, findMethod, wrapperspb.String(query), res); err != nil {
		return nil, err
	}

	resources := make([]socialgraph.Resource, 0, len(res.GetValues()))
	for _, v := range res.GetValues() {
		if s := v.GetStructValue(); s != nil {
			resources = append(resources, fromResult(s))
		}
	}
	return resources, nil
}

// Stats implements StatsReader.
func (cli *Client) Stats(ctx context.Context) (socialgraph.Stats, error) {
	res := new(structpb.Struct)
	if err := cli.conn.Invoke(ctx, statsMethod, &emptypb.Empty{}, res); err != nil {
		return socialgraph.Stats{}, err
	}
	fields := res.GetFields()
	return socialgraph.Stats{
		Users:          int(fields[fieldUsers].GetNumberValue()),
		CompletedUsers: int(fields[fieldCompletedUsers].GetNumberValue()),
		Resources:      int(fields[fieldResources].GetNumberValue()),
	}, nil
}

func fromResult(s *structpb.Struct) socialgraph.Resource {
	fields := s.GetFields()
	res := socialgraph.Resource{
		Network:    fields[fieldNetwork].GetStringValue(),
		ExternalID: fields[fieldExternalID].GetStringValue(),
		URL:        fields[fieldURL].GetStringValue(),
		Text:       fields[fieldText].GetStringValue(),
	}
	// a malformed id keeps uuid.Nil
	if id, err := uuid.Parse(fields[fieldID].GetStringValue()); err == nil {
		res.ID = id
	}
	if loc := fields[fieldLocation].GetStructValue(); loc != nil {
		lf := loc.GetFields()
		res.Location = &socialgraph.Location{
			Name: lf[fieldName].GetStringValue(),
			Lat:  lf[fieldLat].GetNumberValue(),
			Lon:  lf[fieldLon].GetNumberValue(),
		}
	}
	return res
}
