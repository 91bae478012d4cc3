package middleware

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/idempotency"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
)

// IdempotencyMiddleware fingerprints mutating commands from their semantic
// content (method, path, tenant, user, query, body) and runs the wrapped
// handler through the at-most-once runner. A retried request replays the
// stored response; a concurrent duplicate is rejected.
type IdempotencyMiddleware struct {
  log    *logger.Logger
  runner *idempotency.Runner
}

func NewIdempotencyMiddleware(log *logger.Logger, runner *idempotency.Runner) *IdempotencyMiddleware {
  return &IdempotencyMiddleware{log: log.With("middleware", "IdempotencyMiddleware"), runner: runner}
}

type capturedResponse struct {
  Status int             `json:"status"`
  Body   json.RawMessage `json:"body"`
}

// handlerFailure carries a non-2xx handler response out of the runner so the
// key is released and the original error response still reaches the client.
type handlerFailure struct {
  resp capturedResponse
}

func (e *handlerFailure) Error() string {
  return fmt.Sprintf("handler returned status %d", e.resp.Status)
}

type responseBuffer struct {
  gin.ResponseWriter
  buf    bytes.Buffer
  status int
}

func (w *responseBuffer) WriteHeader(code int)              { w.status = code }
func (w *responseBuffer) WriteHeaderNow()                   {}
func (w *responseBuffer) Write(b []byte) (int, error)       { return w.buf.Write(b) }
func (w *responseBuffer) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

func (w *responseBuffer) Status() int {
  if w.status != 0 {
    return w.status
  }
  return http.StatusOK
}

func (w *responseBuffer) Written() bool {
  return w.status != 0 || w.buf.Len() > 0
}

// Guard derives the idempotency key and executes the rest of the chain at
// most once per key. Must run after RequireAuth.
func (im *IdempotencyMiddleware) Guard(scope string) gin.HandlerFunc {
  return func(c *gin.Context) {
    rd := requestdata.GetRequestData(c.Request.Context())
    if rd == nil || rd.UserID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
      return
    }

    bodyBytes, err := io.ReadAll(c.Request.Body)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
      return
    }
    c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

    var body any
    if len(bodyBytes) > 0 {
      if err := json.Unmarshal(bodyBytes, &body); err != nil {
        body = string(bodyBytes)
      }
    }
    query := make(map[string]any)
    for k, v := range c.Request.URL.Query() {
      query[k] = v
    }

    key, err := idempotency.DeriveKey(idempotency.KeyInput{
      Method:   c.Request.Method,
      Path:     c.FullPath(),
      TenantID: rd.TenantID,
      UserID:   rd.UserID.String(),
      Query:    query,
      Body:     body,
      Scope:    scope,
    })
    if err != nil {
      im.log.Error("idempotency key derivation failed", "error", err)
      c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
      return
    }

    original := c.Writer
    result, replayed, err := im.runner.Execute(c.Request.Context(), key, func(ctx context.Context) (any, error) {
      buffered := &responseBuffer{ResponseWriter: original}
      c.Writer = buffered
      c.Next()
      c.Writer = original
      resp := capturedResponse{
        Status: buffered.Status(),
        Body:   json.RawMessage(buffered.buf.Bytes()),
      }
      if resp.Status >= http.StatusBadRequest {
        return nil, &handlerFailure{resp: resp}
      }
      return resp, nil
    })
    c.Writer = original

    if err != nil {
      var hf *handlerFailure
      switch {
      case errors.As(err, &hf):
        writeCaptured(c, hf.resp)
      case errors.Is(err, idempotency.ErrDuplicateInFlight):
        c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request already in flight"})
      default:
        im.log.Error("idempotent execution failed", "key", key.Key, "error", err)
        c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
      }
      return
    }

    var resp capturedResponse
    if err := json.Unmarshal(result, &resp); err != nil {
      im.log.Error("stored response unreadable", "key", key.Key, "error", err)
      c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
      return
    }
    if replayed {
      c.Header("Idempotency-Replayed", "true")
    }
    writeCaptured(c, resp)
  }
}

func writeCaptured(c *gin.Context, resp capturedResponse) {
  c.Abort()
  c.Data(resp.Status, "application/json; charset=utf-8", resp.Body)
}
