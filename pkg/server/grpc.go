package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dasmlab/lektor/pkg/service"
	"github.com/dasmlab/lektor/pkg/translate"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReaderServiceName is the fully qualified gRPC service name.
const ReaderServiceName = "lektor.v1.ReaderService"

// ReaderServiceServer is the gRPC surface of the reader. Requests and
// responses are google.protobuf.Struct values with the same JSON shapes as
// the HTTP API.
type ReaderServiceServer interface {
	Translate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TranslateStored(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Chat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupWord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateSpeech(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProviders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchProvider(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ReaderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ReaderServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReaderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReaderServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReaderServiceDesc describes ReaderServiceServer for grpc.Server.RegisterService.
var ReaderServiceDesc = grpc.ServiceDesc{
	ServiceName: ReaderServiceName,
	HandlerType: (*ReaderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: unaryHandler("Translate", ReaderServiceServer.Translate)},
		{MethodName: "TranslateStored", Handler: unaryHandler("TranslateStored", ReaderServiceServer.TranslateStored)},
		{MethodName: "Chat", Handler: unaryHandler("Chat", ReaderServiceServer.Chat)},
		{MethodName: "LookupWord", Handler: unaryHandler("LookupWord", ReaderServiceServer.LookupWord)},
		{MethodName: "GenerateSpeech", Handler: unaryHandler("GenerateSpeech", ReaderServiceServer.GenerateSpeech)},
		{MethodName: "ListProviders", Handler: unaryHandler("ListProviders", ReaderServiceServer.ListProviders)},
		{MethodName: "SwitchProvider", Handler: unaryHandler("SwitchProvider", ReaderServiceServer.SwitchProvider)},
		{MethodName: "SubmitJob", Handler: unaryHandler("SubmitJob", ReaderServiceServer.SubmitJob)},
		{MethodName: "GetJob", Handler: unaryHandler("GetJob", ReaderServiceServer.GetJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: readerProtoFile,
}

// RegisterReaderServiceServer registers srv on s.
func RegisterReaderServiceServer(s grpc.ServiceRegistrar, srv ReaderServiceServer) {
	s.RegisterService(&ReaderServiceDesc, srv)
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// toStruct encodes v into a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCServer implements ReaderServiceServer on top of a ReaderService.
type GRPCServer struct {
	reader *service.ReaderService
	logger *logrus.Logger
}

// NewGRPCServer creates a new GRPCServer.
func NewGRPCServer(reader *service.ReaderService, logger *logrus.Logger) *GRPCServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &GRPCServer{reader: reader, logger: logger}
}

// toStatus converts a service error into a gRPC status error.
func (s *GRPCServer) toStatus(method string, err error) error {
	_, code := errorKind(err)
	s.logger.WithError(err).WithFields(logrus.Fields{
		"method": method,
		"code":   code.String(),
	}).Warn("[gRPC] Request failed")
	return status.Error(code, err.Error())
}

// handle decodes the request into req, runs fn and encodes its result.
func handle[Req any, Resp any](s *GRPCServer, method string, in *structpb.Struct, fn func(*Req) (Resp, error)) (*structpb.Struct, error) {
	s.logger.WithFields(logrus.Fields{
		"method": method,
	}).Debug("[gRPC] Request received")

	req := new(Req)
	if err := fromStruct(in, req); err != nil {
		return nil, s.toStatus(method, fmt.Errorf("%w: %w", service.ErrInvalidInput, err))
	}
	resp, err := fn(req)
	if err != nil {
		return nil, s.toStatus(method, err)
	}
	out, err := toStruct(resp)
	if err != nil {
		return nil, s.toStatus(method, fmt.Errorf("encode response: %w", err))
	}
	return out, nil
}

// Translate translates one structured page.
func (s *GRPCServer) Translate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "Translate", in, func(req *translate.Request) (*translate.Result, error) {
		return s.reader.Translate(ctx, *req)
	})
}

// TranslateStored translates a page of a library text.
func (s *GRPCServer) TranslateStored(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "TranslateStored", in, func(req *translateStoredRequest) (*translate.Result, error) {
		return s.reader.TranslateStored(ctx, req.TextName, req.PageNumber)
	})
}

// Chat answers a tutor question.
func (s *GRPCServer) Chat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "Chat", in, func(req *chatRequest) (*service.ChatResponse, error) {
		return s.reader.Chat(ctx, req.Question, req.Context)
	})
}

// LookupWord returns a dictionary entry.
func (s *GRPCServer) LookupWord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "LookupWord", in, func(req *dictionaryRequest) (*service.DictionaryEntry, error) {
		return s.reader.LookupWord(ctx, req.Word, req.Context)
	})
}

// GenerateSpeech synthesizes speech. Audio is base64 encoded.
func (s *GRPCServer) GenerateSpeech(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "GenerateSpeech", in, func(req *speakRequest) (*service.SpeechResult, error) {
		voice := req.Voice
		if voice == "" {
			voice = service.DefaultVoice
		}
		speed := service.DefaultSpeed
		if req.Speed != nil {
			speed = *req.Speed
		}
		return s.reader.GenerateSpeech(ctx, req.Text, voice, speed)
	})
}

// ListProviders lists providers and the active one.
func (s *GRPCServer) ListProviders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "ListProviders", in, func(*struct{}) (*service.ProvidersOverview, error) {
		return s.reader.ListProviders(), nil
	})
}

// SwitchProvider changes the active provider.
func (s *GRPCServer) SwitchProvider(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "SwitchProvider", in, func(req *switchProviderRequest) (switchProviderResponse, error) {
		info, err := s.reader.SwitchProvider(ctx, req.Provider)
		if err != nil {
			return switchProviderResponse{}, err
		}
		return switchProviderResponse{
			Success:  true,
			Provider: info,
			Message:  "Successfully switched to " + info.Provider,
		}, nil
	})
}

// SubmitJob queues a background page translation.
func (s *GRPCServer) SubmitJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "SubmitJob", in, func(req *submitJobRequest) (service.JobSnapshot, error) {
		tr := req.Request
		if tr.PageData == nil && req.TextName != "" {
			stored, err := s.reader.StoredRequest(req.TextName, req.PageNumber)
			if err != nil {
				return service.JobSnapshot{}, err
			}
			tr = stored
		}
		return s.reader.SubmitJob(tr, req.RequestID)
	})
}

type getJobRequest struct {
	JobID string `json:"job_id"`
}

// GetJob returns the state of a background job.
func (s *GRPCServer) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, "GetJob", in, func(req *getJobRequest) (service.JobSnapshot, error) {
		return s.reader.GetJob(req.JobID)
	})
}

// ReaderClient calls ReaderService over a gRPC connection.
type ReaderClient struct {
	cc grpc.ClientConnInterface
}

// NewReaderClient creates a client on cc.
func NewReaderClient(cc grpc.ClientConnInterface) *ReaderClient {
	return &ReaderClient{cc: cc}
}

// Call invokes method with req and decodes the response into resp.
// req and resp are any JSON-compatible values.
func (c *ReaderClient) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ReaderServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}
