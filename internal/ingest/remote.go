package ingest

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultFetchTimeout bounds a remote download.
const DefaultFetchTimeout = 60 * time.Second

// IsRemote reports whether src is an ftp, http or https URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "ftp", "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// FetchToDir downloads a remote property export into dir and returns the
// local path. The file keeps the remote base name so DetectFormat still works.
func FetchToDir(ctx context.Context, src, dir string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", eris.Wrap(err, "ingest: parse source url")
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", eris.Errorf("ingest: source url %q has no file name", src)
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "ftp":
		body, err = downloadFTP(ctx, u)
	case "http", "https":
		body, err = downloadHTTP(ctx, src)
	default:
		return "", eris.Errorf("ingest: unsupported source scheme %q", u.Scheme)
	}
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "ingest: create local file")
	}
	defer f.Close() //nolint:errcheck

	n, err := io.Copy(f, body)
	if err != nil {
		return "", eris.Wrap(err, "ingest: write local file")
	}
	zap.L().Info("ingest: fetched remote source", zap.String("source", u.Redacted()), zap.Int64("bytes", n))
	return dest, nil
}

// ftpAddr extracts host:port and the file path from an ftp URL.
func ftpAddr(u *url.URL) (host, filePath string, err error) {
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return "", "", eris.New("empty path in ftp url")
	}
	return host, u.Path, nil
}

// ftpCredentials uses the URL's user info, falling back to anonymous login.
func ftpCredentials(u *url.URL) (user, pass string) {
	if u.User == nil {
		return "anonymous", "anonymous@"
	}
	pass, _ = u.User.Password()
	return u.User.Username(), pass
}

// ftpReader closes the transfer and the control connection together.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	return eris.Wrap(quitErr, "quit ftp connection")
}

func downloadFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host, filePath, err := ftpAddr(u)
	if err != nil {
		return nil, err
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(DefaultFetchTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	user, pass := ftpCredentials(u)
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(filePath)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}

func downloadHTTP(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "dqi-engine/1.0")

	client := &http.Client{Timeout: DefaultFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, strings.SplitN(src, "?", 2)[0])
	}
	return resp.Body, nil
}
