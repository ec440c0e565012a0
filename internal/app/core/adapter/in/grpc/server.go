package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/pkg/serializer"
)

// ServiceName gRPC 服務名稱
const ServiceName = "ledger.v1.LedgerService"

// FullMethod 組出方法的完整路徑，給 conn.Invoke 使用
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerService gRPC 層依賴的帳務操作 (*usecase.CoreUseCase)
type LedgerService interface {
	CreateAccount(ctx context.Context) (domain.Account, error)
	FindAccount(ctx context.Context, id int64) (domain.Account, bool, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id int64) (bool, error)
	Recharge(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error)
	Withdraw(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error)
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, description string) (domain.Transaction, error)
	ListTransactions(ctx context.Context, id int64) ([]domain.Transaction, error)
}

// LedgerServiceServer 服務端需要實作的方法，訊息一律使用 structpb.Struct
type LedgerServiceServer interface {
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recharge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("CreateAccount", LedgerServiceServer.CreateAccount),
		methodDesc("GetAccount", LedgerServiceServer.GetAccount),
		methodDesc("ListAccounts", LedgerServiceServer.ListAccounts),
		methodDesc("DeleteAccount", LedgerServiceServer.DeleteAccount),
		methodDesc("Recharge", LedgerServiceServer.Recharge),
		methodDesc("Withdraw", LedgerServiceServer.Withdraw),
		methodDesc("Transfer", LedgerServiceServer.Transfer),
		methodDesc("ListTransactions", LedgerServiceServer.ListTransactions),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterLedgerServiceServer 將服務註冊到 gRPC Server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type GrpcServer struct {
	core LedgerService
}

var _ LedgerServiceServer = (*GrpcServer)(nil)

func NewGrpcServer(core LedgerService) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) CreateAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	account, err := s.core.CreateAccount(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return accountMessage(account)
}

// GetAccount 回傳 {found, account}，帳戶不存在不算錯誤
func (s *GrpcServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, fieldAccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	account, found, err := s.core.FindAccount(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := map[string]any{fieldFound: found}
	if found {
		resp[fieldAccount] = accountValue(account)
	}
	return structpb.NewStruct(resp)
}

func (s *GrpcServer) ListAccounts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accounts, err := s.core.ListAccounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return accountsMessage(accounts)
}

func (s *GrpcServer) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, fieldAccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	existed, err := s.core.DeleteAccount(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{fieldExisted: existed})
}

func (s *GrpcServer) Recharge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := accountAndAmount(req)
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Recharge(ctx, id, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return transactionMessage(tran)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := accountAndAmount(req)
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Withdraw(ctx, id, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return transactionMessage(tran)
}

func (s *GrpcServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fromID, err := int64Field(req, fieldFrom)
	if err != nil {
		return nil, toStatus(err)
	}
	toID, err := int64Field(req, fieldTo)
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := decimalField(req, fieldAmount)
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Transfer(ctx, fromID, toID, amount, stringField(req, fieldDescription))
	if err != nil {
		return nil, toStatus(err)
	}
	return transactionMessage(tran)
}

func (s *GrpcServer) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, fieldAccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	trans, err := s.core.ListTransactions(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return transactionsMessage(trans)
}

func accountAndAmount(req *structpb.Struct) (int64, decimal.Decimal, error) {
	id, err := int64Field(req, fieldAccountID)
	if err != nil {
		return 0, decimal.Decimal{}, err
	}
	amount, err := decimalField(req, fieldAmount)
	if err != nil {
		return 0, decimal.Decimal{}, err
	}
	return id, amount, nil
}

// toStatus 將錯誤種類轉成 gRPC status code
func toStatus(err error) error {
	if errors.Is(err, serializer.ErrClosed) || errors.Is(err, serializer.ErrWorkerDied) {
		return status.Error(codes.Unavailable, err.Error())
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor 記錄每個請求的方法、耗時與狀態碼
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := slog.LevelDebug
		switch code {
		case codes.OK, codes.NotFound, codes.InvalidArgument:
		case codes.Internal, codes.Unavailable:
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc request",
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
