package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ascension.battle.v1.BattleService"

// BattleServiceServer is the server API for the battle service. Requests and
// responses are free-form protobuf Structs.
type BattleServiceServer interface {
	ListRoster(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStoryWorld(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SimulateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Story(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BossRush(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InfiniteWaves(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Match(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Private(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Checkmate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Audit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(BattleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(BattleServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// BattleServiceDesc describes the battle service for grpc.Server. Messages
// travel as structpb.Struct, so no generated proto file backs it.
var BattleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListRoster", BattleServiceServer.ListRoster),
		unary("GetCharacter", BattleServiceServer.GetCharacter),
		unary("GetStoryWorld", BattleServiceServer.GetStoryWorld),
		unary("Simulate", BattleServiceServer.Simulate),
		unary("SimulateBatch", BattleServiceServer.SimulateBatch),
		unary("Story", BattleServiceServer.Story),
		unary("BossRush", BattleServiceServer.BossRush),
		unary("InfiniteWaves", BattleServiceServer.InfiniteWaves),
		unary("Match", BattleServiceServer.Match),
		unary("Private", BattleServiceServer.Private),
		unary("Checkmate", BattleServiceServer.Checkmate),
		unary("Audit", BattleServiceServer.Audit),
		unary("History", BattleServiceServer.History),
	},
}

// RegisterBattleServiceServer registers srv on s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&BattleServiceDesc, srv)
}

// Register wires the battle service and the standard health service onto srv.
//
// Postcondition: Both services report SERVING.
func Register(srv *grpc.Server, svc *Service) *health.Server {
	RegisterBattleServiceServer(srv, NewServer(svc))
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return hs
}

// BattleServiceClient calls the battle service by method name.
type BattleServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBattleServiceClient wraps cc.
func NewBattleServiceClient(cc grpc.ClientConnInterface) *BattleServiceClient {
	return &BattleServiceClient{cc: cc}
}

// Call invokes method with a request built from in.
func (c *BattleServiceClient) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encoding request: %v", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Server adapts a Service to BattleServiceServer.
type Server struct {
	svc *Service
}

var _ BattleServiceServer = (*Server)(nil)

// NewServer creates a Server.
//
// Precondition: svc must be non-nil.
func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

// ListRoster returns every character.
func (s *Server) ListRoster(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(map[string]any{"characters": charactersMessage(s.svc.Roster())})
}

// GetCharacter returns the character named by "id".
func (s *Server) GetCharacter(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := newRequest(in).requiredStr("id")
	if err != nil {
		return s.fail(err)
	}
	c, err := s.svc.Character(id)
	if err != nil {
		return s.fail(err)
	}
	return s.reply(map[string]any{"character": characterMessage(c)})
}

// GetStoryWorld returns the boss team of "world".
func (s *Server) GetStoryWorld(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	world, err := newRequest(in).integer("world", 0)
	if err != nil {
		return s.fail(err)
	}
	return s.reply(map[string]any{
		"world": world,
		"team":  charactersMessage(s.svc.StoryWorld(world)),
	})
}

// Simulate runs one unrecorded battle.
func (s *Server) Simulate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	teamA, teamB, seed, err := battleRequest(newRequest(in))
	if err != nil {
		return s.fail(err)
	}
	res, err := s.svc.Simulate(teamA, teamB, seed)
	if err != nil {
		return s.fail(err)
	}
	return s.reply(resultMessage(res))
}

// SimulateBatch runs every entry of "battles" and returns results in order.
func (s *Server) SimulateBatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	items, err := newRequest(in).list("battles")
	if err != nil {
		return s.fail(err)
	}
	reqs := make([]battle.Request, 0, len(items))
	cat := s.svc.engine.Catalog()
	for _, item := range items {
		teamA, teamB, seed, err := battleRequest(item)
		if err != nil {
			return s.fail(err)
		}
		if err := s.svc.checkIDs(teamA, teamB); err != nil {
			return s.fail(err)
		}
		a, _ := cat.Resolve(teamA)
		b, _ := cat.Resolve(teamB)
		reqs = append(reqs, battle.Request{TeamA: a, TeamB: b, Seed: seed})
	}
	results, err := s.svc.SimulateBatch(ctx, reqs)
	if err != nil {
		return s.fail(err)
	}
	out := make([]any, len(results))
	for i, res := range results {
		out[i] = resultMessage(res)
	}
	return s.reply(map[string]any{"results": out})
}

// Story plays one story world.
func (s *Server) Story(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(in)
	user, err := r.requiredStr("user_id")
	if err != nil {
		return s.fail(err)
	}
	world, err := r.integer("world", 0)
	if err != nil {
		return s.fail(err)
	}
	ngPlus, err := r.integer("ng_plus", 0)
	if err != nil {
		return s.fail(err)
	}
	return s.run(s.svc.Story(ctx, user, world, ngPlus))
}

// BossRush plays a boss rush with "team".
func (s *Server) BossRush(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, team, err := playerRequest(newRequest(in))
	if err != nil {
		return s.fail(err)
	}
	return s.run(s.svc.BossRush(ctx, user, team))
}

// InfiniteWaves plays up to "waves" waves; zero means the configured default.
func (s *Server) InfiniteWaves(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(in)
	user, team, err := playerRequest(r)
	if err != nil {
		return s.fail(err)
	}
	waves, err := r.integer("waves", 0)
	if err != nil {
		return s.fail(err)
	}
	return s.run(s.svc.InfiniteWaves(ctx, user, team, waves))
}

// Match plays "team_a" owned by "user_a" against "team_b" owned by "user_b".
func (s *Server) Match(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(in)
	var (
		userA, userB string
		teamA, teamB []string
		err          error
	)
	if userA, err = r.requiredStr("user_a"); err != nil {
		return s.fail(err)
	}
	if userB, err = r.requiredStr("user_b"); err != nil {
		return s.fail(err)
	}
	if teamA, err = r.strs("team_a"); err != nil {
		return s.fail(err)
	}
	if teamB, err = r.strs("team_b"); err != nil {
		return s.fail(err)
	}
	return s.run(s.svc.Match(ctx, userA, teamA, userB, teamB))
}

// Private plays "team" against its mirror.
func (s *Server) Private(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, team, err := playerRequest(newRequest(in))
	if err != nil {
		return s.fail(err)
	}
	return s.run(s.svc.Private(ctx, user, team))
}

// Checkmate runs the scripted finisher.
func (s *Server) Checkmate(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Checkmate()
	if err != nil {
		return s.fail(err)
	}
	return s.reply(resultMessage(res))
}

// Audit replays the stored match "match_id".
func (s *Server) Audit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := newRequest(in).matchID("match_id")
	if err != nil {
		return s.fail(err)
	}
	a, err := s.svc.Audit(ctx, id)
	if err != nil {
		return s.fail(err)
	}
	return s.reply(auditMessage(a))
}

// History lists "user_id"'s recent matches.
func (s *Server) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(in)
	user, err := r.requiredStr("user_id")
	if err != nil {
		return s.fail(err)
	}
	limit, err := r.integer("limit", 0)
	if err != nil {
		return s.fail(err)
	}
	list, err := s.svc.History(ctx, user, limit)
	if err != nil {
		return s.fail(err)
	}
	return s.reply(map[string]any{"matches": historyMessage(list)})
}

func (s *Server) run(run *modes.Run, err error) (*structpb.Struct, error) {
	if err != nil {
		return s.fail(err)
	}
	return s.reply(runMessage(run))
}

func (s *Server) reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.svc.logger.Error("encoding response", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func (s *Server) fail(err error) (*structpb.Struct, error) {
	st := toStatus(err)
	if st.Code() == codes.Internal {
		s.svc.logger.Error("battle service failure", zap.Error(err))
	}
	return nil, st.Err()
}

func battleRequest(r request) (teamA, teamB []string, seed string, err error) {
	if teamA, err = r.strs("team_a"); err != nil {
		return
	}
	if teamB, err = r.strs("team_b"); err != nil {
		return
	}
	seed, err = r.str("seed")
	return
}

func playerRequest(r request) (string, []string, error) {
	user, err := r.requiredStr("user_id")
	if err != nil {
		return "", nil, err
	}
	team, err := r.strs("team")
	return user, team, err
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) *status.Status {
	code := codes.Internal
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, ErrUnknownCharacter),
		errors.Is(err, modes.ErrInvalidWorld),
		errors.Is(err, modes.ErrInvalidWaves),
		errors.Is(err, modes.ErrEmptyTeam),
		errors.Is(err, battle.ErrEmptyTeam):
		code = codes.InvalidArgument
	case errors.Is(err, postgres.ErrMatchNotFound):
		code = codes.NotFound
	case errors.Is(err, postgres.ErrMatchExists):
		code = codes.AlreadyExists
	case errors.Is(err, ErrCheckmateLocked):
		code = codes.PermissionDenied
	case errors.Is(err, ErrNoRecorder):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.New(code, err.Error())
}
