package web

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/klauspost/compress/gzhttp"
	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	"io"
	"mime"
	"net/http"
	ownIo "tagsearch/io"
	"tagsearch/library"
	"tagsearch/parser"
	"tagsearch/query"
)

const (
	requestIdHeader         = "X-Request-Id"
	maxLengthOfPrintedQuery = 10000
	maxQueryBodySize        = 1024 * 1024
)

type requestIdKey struct{}

// ErrorResponse is the body of all non-2xx responses. Details are only set for syntax errors in the query.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details *parser.ParsingError `json:"details,omitempty"`
}

func StartServer(port string, lib library.Library) {
	r := initRouter(lib)
	sigolo.Infof("Start server without TLS support on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func StartServerTls(port string, certFile string, keyFile string, lib library.Library) {
	r := initRouter(lib)
	sigolo.Infof("Start server with TLS support on port %s", port)
	err := http.ListenAndServeTLS(":"+port, certFile, keyFile, r)
	sigolo.FatalCheck(err)
}

func initRouter(lib library.Library) http.Handler {
	api := &api{
		lib:        lib,
		jsonParser: &fastjson.ParserPool{},
	}

	r := mux.NewRouter()
	r.Use(requestIdMiddleware)
	r.HandleFunc("/query", api.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/parse", api.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/tags", api.handleTags).Methods(http.MethodGet)

	return gzhttp.GzipHandler(servertiming.Middleware(r, nil))
}

type api struct {
	lib        library.Library
	jsonParser *fastjson.ParserPool
}

func (a *api) handleQuery(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	ctx := request.Context()

	queryString, err := a.readQueryString(writer, request)
	if err != nil {
		writeError(ctx, writer, http.StatusBadRequest, err)
		return
	}

	node, ok := parseQuery(ctx, writer, queryString)
	if !ok {
		return
	}

	stopTiming := startTiming(ctx, "search")
	entries, err := a.lib.Search(ctx, node)
	stopTiming()
	if err != nil {
		writeError(ctx, writer, http.StatusInternalServerError, errors.Wrap(err, "Error executing query"))
		return
	}
	sigolo.Debugf("[%s] Found %d entries", requestId(ctx), len(entries))

	tags, err := a.lib.Tags(ctx)
	if err != nil {
		writeError(ctx, writer, http.StatusInternalServerError, errors.Wrap(err, "Error reading tags"))
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	err = ownIo.WriteEntriesAsJson(entries, tags, writer)
	if err != nil {
		sigolo.Errorf("[%s] Error writing query result: %+v", requestId(ctx), err)
	}
}

func (a *api) handleParse(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	ctx := request.Context()

	queryString, err := a.readQueryString(writer, request)
	if err != nil {
		writeError(ctx, writer, http.StatusBadRequest, err)
		return
	}

	node, ok := parseQuery(ctx, writer, queryString)
	if !ok {
		return
	}

	writeJson(ctx, writer, http.StatusOK, map[string]string{"query": query.Format(node)})
}

func (a *api) handleTags(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	ctx := request.Context()

	tags, err := a.lib.Tags(ctx)
	if err != nil {
		writeError(ctx, writer, http.StatusInternalServerError, errors.Wrap(err, "Error reading tags"))
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	err = ownIo.WriteTagsAsJson(tags, writer)
	if err != nil {
		sigolo.Errorf("[%s] Error writing tags: %+v", requestId(ctx), err)
	}
}

// readQueryString returns the request body as query. JSON bodies have to be objects with a "query" string field.
func (a *api) readQueryString(writer http.ResponseWriter, request *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxQueryBodySize))
	if err != nil {
		return "", errors.Wrap(err, "Error reading HTTP body")
	}

	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return string(body), nil
	}

	jsonParser := a.jsonParser.Get()
	defer a.jsonParser.Put(jsonParser)

	value, err := jsonParser.ParseBytes(body)
	if err != nil {
		return "", errors.Wrap(err, "Invalid JSON")
	}
	queryValue := value.Get("query")
	if queryValue == nil || queryValue.Type() != fastjson.TypeString {
		return "", errors.New("JSON body must contain the query as string field 'query'")
	}
	return string(queryValue.GetStringBytes()), nil
}

// parseQuery writes the error response itself and returns false if the query is invalid.
func parseQuery(ctx context.Context, writer http.ResponseWriter, queryString string) (query.Node, bool) {
	trimmedQueryString := queryString
	queryRunes := []rune(queryString)
	if len(queryRunes) > maxLengthOfPrintedQuery {
		trimmedQueryString = string(queryRunes[:maxLengthOfPrintedQuery]) + "... [truncated]"
	}
	sigolo.Infof("[%s] Query: %s", requestId(ctx), trimmedQueryString)

	stopTiming := startTiming(ctx, "parse")
	node, err := parser.ParseQueryString(queryString)
	stopTiming()
	if err != nil {
		writeError(ctx, writer, http.StatusBadRequest, err)
		return nil, false
	}

	return node, true
}

func writeError(ctx context.Context, writer http.ResponseWriter, status int, err error) {
	sigolo.Errorf("[%s] Request failed with status %d: %+v", requestId(ctx), status, err)

	response := &ErrorResponse{
		Error:   err.Error(),
		Details: parser.AsParsingError(err),
	}
	writeJson(ctx, writer, status, response)
}

func writeJson(ctx context.Context, writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	err := json.NewEncoder(writer).Encode(body)
	if err != nil {
		sigolo.Errorf("[%s] Error writing response: %+v", requestId(ctx), err)
	}
}

func requestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		id := request.Header.Get(requestIdHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		writer.Header().Set(requestIdHeader, id)
		sigolo.Debugf("[%s] %s %s", id, request.Method, request.URL.Path)

		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), requestIdKey{}, id)))
	})
}

func requestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey{}).(string)
	return id
}

// startTiming adds a metric to the Server-Timing header and returns the function stopping it.
func startTiming(ctx context.Context, name string) func() {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return func() {}
	}
	metric := timing.NewMetric(name).Start()
	return func() {
		metric.Stop()
	}
}
