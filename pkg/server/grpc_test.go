package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dasmlab/lektor/pkg/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newTestClient(t *testing.T, reader *service.ReaderService) *ReaderClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterReaderServiceServer(srv, NewGRPCServer(reader, quietLogger()))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewReaderClient(conn)
}

func TestGRPCChat(t *testing.T) {
	client := newTestClient(t, newTestReader(t, true))
	ctx := context.Background()

	var got service.ChatResponse
	if err := client.Call(ctx, "Chat", chatRequest{Question: "Was heißt Tor?"}, &got); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Response != "answer from openai" || got.Provider != "openai" {
		t.Errorf("Chat() = %+v", got)
	}

	err := client.Call(ctx, "Chat", chatRequest{}, nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty question code = %s, want InvalidArgument", status.Code(err))
	}
}

func TestGRPCUnavailable(t *testing.T) {
	client := newTestClient(t, newTestReader(t, false))

	err := client.Call(context.Background(), "LookupWord", dictionaryRequest{Word: "Tor"}, nil)
	if status.Code(err) != codes.Unavailable {
		t.Errorf("code = %s, want Unavailable", status.Code(err))
	}
}

func TestGRPCSpeechValidation(t *testing.T) {
	client := newTestClient(t, newTestReader(t, true))
	ctx := context.Background()

	err := client.Call(ctx, "GenerateSpeech", map[string]any{"text": "Hallo", "voice": "invalid", "speed": 1.0}, nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("invalid voice code = %s, want InvalidArgument", status.Code(err))
	}

	var got service.SpeechResult
	if err := client.Call(ctx, "GenerateSpeech", map[string]any{"text": "Hallo", "voice": "nova"}, &got); err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if string(got.Audio) != "mp3:Hallo" || got.Speed != 1.0 || got.Voice != "nova" {
		t.Errorf("GenerateSpeech() = %+v", got)
	}
}

func TestGRPCProviders(t *testing.T) {
	client := newTestClient(t, newTestReader(t, true))
	ctx := context.Background()

	err := client.Call(ctx, "SwitchProvider", switchProviderRequest{Provider: "nonexistent"}, nil)
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("switch to unknown code = %s, want FailedPrecondition", status.Code(err))
	}

	var overview service.ProvidersOverview
	if err := client.Call(ctx, "ListProviders", struct{}{}, &overview); err != nil {
		t.Fatalf("ListProviders: %v", err)
	}
	if overview.Current != "openai" || len(overview.Providers) != 2 {
		t.Errorf("ListProviders() = %+v", overview)
	}

	var switched switchProviderResponse
	if err := client.Call(ctx, "SwitchProvider", switchProviderRequest{Provider: "gemini"}, &switched); err != nil {
		t.Fatalf("SwitchProvider: %v", err)
	}
	if switched.Provider.Provider != "google" {
		t.Errorf("SwitchProvider() = %+v", switched)
	}
}

func TestGRPCTranslate(t *testing.T) {
	client := newTestClient(t, newTestReader(t, true))
	ctx := context.Background()

	req := map[string]any{
		"metadata": map[string]any{"title": "Faust", "author": "Goethe", "year": 1808},
		"page_data": map[string]any{
			"page_number": 1,
			"paragraphs": []any{
				map[string]any{"sentences": []any{
					map[string]any{"text": "Habe nun, ach!", "type": "dialogue"},
				}},
			},
		},
	}
	var got struct {
		Provider string `json:"provider"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
		PageData struct {
			PageNumber int `json:"page_number"`
			Paragraphs []struct {
				Sentences []struct {
					EnglishTranslation []string `json:"english_translation"`
				} `json:"sentences"`
			} `json:"paragraphs"`
		} `json:"page_data"`
	}
	if err := client.Call(ctx, "Translate", req, &got); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got.PageData.PageNumber != 1 || got.Metadata.Title != "Faust" {
		t.Errorf("Translate() = %+v", got)
	}
	if tr := got.PageData.Paragraphs[0].Sentences[0].EnglishTranslation; len(tr) != 1 || tr[0] != "I have now, alas!" {
		t.Errorf("translation = %v", tr)
	}

	err := client.Call(ctx, "TranslateStored", translateStoredRequest{TextName: "werther"}, nil)
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown text code = %s, want NotFound", status.Code(err))
	}
}

func TestGRPCJobs(t *testing.T) {
	reader := newTestReader(t, true)
	client := newTestClient(t, reader)
	ctx := context.Background()

	var submitted service.JobSnapshot
	if err := client.Call(ctx, "SubmitJob", map[string]any{"text_name": "faust"}, &submitted); err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	job, err := reader.Jobs.GetJob(submitted.ID)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	var got service.JobSnapshot
	if err := client.Call(ctx, "GetJob", getJobRequest{JobID: submitted.ID}, &got); err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != service.JobStatusCompleted || got.ProgressPercent != 100 {
		t.Errorf("GetJob() = %+v", got)
	}

	err = client.Call(ctx, "GetJob", getJobRequest{JobID: "missing"}, nil)
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown job code = %s, want NotFound", status.Code(err))
	}
}
