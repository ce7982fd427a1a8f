package web

import (
	"bytes"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"io"
	"net/http"
	"sat/scan"
	"sat/shard"
)

// StartServer serves the identifier search over HTTP. The shard source is
// resolved once at startup, every request runs one scan pass over it.
func StartServer(port string, source []shard.Handle) {
	r := initRouter(source)
	sigolo.Infof("Start server on port %s with %d shards", port, len(source))
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func initRouter(source []shard.Handle) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/find", func(writer http.ResponseWriter, request *http.Request) {
		idBytes, err := io.ReadAll(request.Body)
		if err != nil {
			sigolo.Errorf("Error reading HTTP body of request to '/find': %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			_, err = writer.Write([]byte("Error reading HTTP body."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		identifierSet, err := scan.ParseIdentifierSet(string(idBytes))
		if err != nil {
			sigolo.Errorf("Error parsing identifiers: %+v", err)
			writer.WriteHeader(http.StatusBadRequest)
			_, err = writer.Write([]byte(fmt.Sprintf("Error parsing identifiers: %+v", err)))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		sigolo.Infof("Find request for %d identifiers", identifierSet.Size())

		buffer := &bytes.Buffer{}
		driver := scan.NewDriver(scan.IdentifierPredicate(identifierSet), scan.NewReporter(buffer))
		registry := shard.NewRegistry()

		err = driver.Run(source, registry)
		if err != nil {
			sigolo.Errorf("Error scanning shards: %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			_, err = writer.Write([]byte(fmt.Sprintf("Error scanning shards: %+v", err)))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		_, err = writer.Write(buffer.Bytes())
		if err != nil {
			sigolo.Errorf("Error writing scan result: %+v", err)
		}
	}).Methods(http.MethodPost)

	return r
}
