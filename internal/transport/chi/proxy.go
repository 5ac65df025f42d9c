package chi

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
)

const imageRoute = "/image/"

// imageProxy forwards /image/{id} to {backend}{imagePath}{id}. The id keeps
// its percent-encoding; ids that would leave the image path are rejected.
type imageProxy struct {
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

func newImageProxy(backend *url.URL, imagePath string, logger *zap.Logger) http.Handler {
	prefix := strings.TrimRight(backend.EscapedPath(), "/") + "/" + strings.Trim(imagePath, "/") + "/"

	return &imageProxy{
		logger: logger,
		proxy: &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				rawPath := prefix + imageRest(pr.In.URL)
				path, err := url.PathUnescape(rawPath)
				if err != nil {
					// ServeHTTP already validated the escaping.
					path = rawPath
				}
				pr.Out.URL.Scheme = backend.Scheme
				pr.Out.URL.Host = backend.Host
				pr.Out.URL.Path = path
				pr.Out.URL.RawPath = rawPath
				pr.Out.URL.RawQuery = ""
				pr.Out.Host = ""
				pr.SetXForwarded()
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				logpkg.FromContext(r.Context(), logger).Warn("image proxy failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}
}

func (p *imageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := imageRest(r.URL)
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	if !safeImagePath(rest) {
		logpkg.FromContext(r.Context(), p.logger).Warn("image path rejected",
			zap.String("path", r.URL.EscapedPath()),
		)
		writeError(w, http.StatusBadRequest, "invalid_image_path", "invalid image path")
		return
	}
	p.proxy.ServeHTTP(w, r)
}

// imageRest returns the escaped part of u's path after /image/.
func imageRest(u *url.URL) string {
	return strings.TrimPrefix(u.EscapedPath(), imageRoute)
}

// safeImagePath reports whether an escaped path stays below the image path
// once decoded, including through encoded slashes.
func safeImagePath(escaped string) bool {
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(decoded, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
