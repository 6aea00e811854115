package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"vibetube/internal/api"
	"vibetube/internal/catalog"
	"vibetube/internal/daemon"
	"vibetube/internal/logging"
	"vibetube/internal/sources"
)

// ServiceName is the RPC receiver name clients address.
const ServiceName = "VibeTube"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until Close is called.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Connections still
// being served are closed by their clients.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun vibetube stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	// Reply before the process starts tearing down the socket.
	resp.Stopped = true
	go s.daemon.RequestShutdown()
	return nil
}

func (s *service) StartLoop(req LoopRequest, resp *LoopResponse) error {
	changed, err := s.daemon.StartLoop(req.Name)
	resp.Changed = changed
	return err
}

func (s *service) StopLoop(req LoopRequest, resp *LoopResponse) error {
	changed, err := s.daemon.StopLoop(req.Name)
	resp.Changed = changed
	return err
}

func (s *service) SourceAdd(req SourceAddRequest, resp *SourceAddResponse) error {
	kind, err := catalog.ParseKind(req.Kind)
	if err != nil {
		return err
	}
	result, err := s.daemon.AddSource(s.ctx, sources.AddRequest{
		Kind:        kind,
		ExternalID:  req.ExternalID,
		Bucket:      req.Bucket,
		AutoAcquire: req.AutoAcquire,
	})
	if err != nil {
		return err
	}
	resp.Source = api.FromSource(sources.Summary{Source: result.Source, Items: result.Items})
	resp.Items = result.Items
	return nil
}

func (s *service) SourceList(_ SourceListRequest, resp *SourceListResponse) error {
	list, err := s.daemon.ListSources(s.ctx)
	if err != nil {
		return err
	}
	resp.Sources = api.FromSources(list)
	return nil
}

func (s *service) SourceRemove(req SourceRemoveRequest, resp *SourceRemoveResponse) error {
	result, err := s.daemon.RemoveSource(s.ctx, req.ID, req.DeleteFiles)
	resp.Name = result.Name
	resp.FilesDeleted = result.FilesDeleted
	resp.FilesTotal = result.FilesTotal
	return err
}

func (s *service) SourceToggleAuto(req IDRequest, resp *ToggleResponse) error {
	value, err := s.daemon.ToggleAuto(s.ctx, req.ID)
	resp.Value = value
	return err
}

func (s *service) ItemList(req ItemListRequest, resp *ItemListResponse) error {
	items, err := s.daemon.ListItems(s.ctx, catalog.ItemFilter{
		Status:   req.Status,
		SourceID: req.SourceID,
		Limit:    req.Limit,
	})
	if err != nil {
		return err
	}
	resp.Items = api.FilterItems(api.FromItems(items), req.Query)
	return nil
}

func (s *service) ItemShow(req IDRequest, resp *ItemResponse) error {
	item, err := s.daemon.GetItem(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Item = api.FromItem(item)
	return nil
}

func (s *service) ItemDownload(req DownloadRequest, resp *DownloadResponse) error {
	result, err := s.daemon.TriggerDownload(s.ctx, req.ID, req.Wait)
	if result.Item != nil {
		resp.Item = api.FromItem(result.Item)
	}
	resp.Started = result.Started
	resp.Waited = result.Waited
	resp.Success = result.Outcome.Success
	resp.Detail = result.Outcome.Detail
	return err
}

func (s *service) ItemResetFailed(req IDRequest, resp *ToggleResponse) error {
	value, err := s.daemon.ResetFailed(s.ctx, req.ID)
	resp.Value = value
	return err
}

func (s *service) ItemResetMissing(req IDRequest, resp *ToggleResponse) error {
	value, err := s.daemon.ResetMissing(s.ctx, req.ID)
	resp.Value = value
	return err
}

func (s *service) ItemToggleSkip(req IDRequest, resp *ToggleResponse) error {
	value, err := s.daemon.ToggleSkip(s.ctx, req.ID)
	resp.Value = value
	return err
}

func (s *service) ItemDeleteFiles(req IDRequest, resp *DeleteFilesResponse) error {
	result, err := s.daemon.DeleteItemFiles(s.ctx, req.ID)
	resp.Folder = result.Folder
	resp.AlreadyGone = result.AlreadyGone
	return err
}

func (s *service) Refresh(req TriggerRequest, resp *RefreshResponse) error {
	result, err := s.daemon.TriggerRefresh(s.ctx, req.Wait)
	resp.Waited = req.Wait
	resp.Sources = result.Sources
	resp.NewItems = result.NewItems
	return err
}

func (s *service) Scan(req TriggerRequest, resp *ScanResponse) error {
	changed, err := s.daemon.TriggerScan(s.ctx, req.Wait)
	resp.Waited = req.Wait
	resp.Changed = changed
	return err
}

func (s *service) BucketAdd(req BucketAddRequest, resp *BucketResponse) error {
	bucket, err := s.daemon.AddBucket(s.ctx, req.Name, req.Description, req.Default)
	if err != nil {
		return err
	}
	resp.Bucket = api.FromBucket(bucket)
	return nil
}

func (s *service) BucketList(_ EmptyRequest, resp *BucketListResponse) error {
	buckets, err := s.daemon.ListBuckets(s.ctx)
	if err != nil {
		return err
	}
	resp.Buckets = api.FromBuckets(buckets)
	return nil
}

func (s *service) BucketDefault(req BucketRequest, resp *BucketResponse) error {
	bucket, err := s.daemon.SetDefaultBucket(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Bucket = api.FromBucket(bucket)
	return nil
}

func (s *service) BucketRemove(req BucketRequest, _ *EmptyResponse) error {
	return s.daemon.RemoveBucket(s.ctx, req.Name)
}

func (s *service) SettingList(_ EmptyRequest, resp *SettingListResponse) error {
	list, err := s.daemon.ListSettings(s.ctx)
	if err != nil {
		return err
	}
	resp.Settings = make([]Setting, 0, len(list))
	for _, setting := range list {
		resp.Settings = append(resp.Settings, api.FromSetting(setting))
	}
	return nil
}

func (s *service) SettingGet(req SettingRequest, resp *SettingResponse) error {
	setting, err := s.daemon.GetSetting(s.ctx, req.Key)
	if err != nil {
		return err
	}
	resp.Setting = api.FromSetting(setting)
	return nil
}

func (s *service) SettingSet(req SettingRequest, resp *SettingResponse) error {
	setting, err := s.daemon.SetSetting(s.ctx, req.Key, req.Value)
	if err != nil {
		return err
	}
	resp.Setting = api.FromSetting(setting)
	return nil
}

func (s *service) SettingClearCookies(_ EmptyRequest, _ *EmptyResponse) error {
	return s.daemon.ClearCookies(s.ctx)
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		s.logger.Warn("test notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "test_notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"))
	}
	return nil
}
