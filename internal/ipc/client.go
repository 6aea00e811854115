package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Stop asks the daemon process to exit.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// StartLoop starts one loop, or every loop when name is empty.
func (c *Client) StartLoop(name string) (*LoopResponse, error) {
	return call[LoopResponse](c, "StartLoop", LoopRequest{Name: name})
}

// StopLoop stops one loop, or every loop when name is empty.
func (c *Client) StopLoop(name string) (*LoopResponse, error) {
	return call[LoopResponse](c, "StopLoop", LoopRequest{Name: name})
}

// SourceAdd registers a source.
func (c *Client) SourceAdd(req SourceAddRequest) (*SourceAddResponse, error) {
	return call[SourceAddResponse](c, "SourceAdd", req)
}

// SourceList returns every source.
func (c *Client) SourceList() (*SourceListResponse, error) {
	return call[SourceListResponse](c, "SourceList", SourceListRequest{})
}

// SourceRemove deletes a source.
func (c *Client) SourceRemove(id int64, deleteFiles bool) (*SourceRemoveResponse, error) {
	return call[SourceRemoveResponse](c, "SourceRemove", SourceRemoveRequest{ID: id, DeleteFiles: deleteFiles})
}

// SourceToggleAuto flips a source's auto-acquire flag.
func (c *Client) SourceToggleAuto(id int64) (*ToggleResponse, error) {
	return call[ToggleResponse](c, "SourceToggleAuto", IDRequest{ID: id})
}

// ItemList returns items matching req.
func (c *Client) ItemList(req ItemListRequest) (*ItemListResponse, error) {
	return call[ItemListResponse](c, "ItemList", req)
}

// ItemShow returns one item.
func (c *Client) ItemShow(id int64) (*ItemResponse, error) {
	return call[ItemResponse](c, "ItemShow", IDRequest{ID: id})
}

// ItemDownload triggers an acquisition.
func (c *Client) ItemDownload(id int64, wait bool) (*DownloadResponse, error) {
	return call[DownloadResponse](c, "ItemDownload", DownloadRequest{ID: id, Wait: wait})
}

// ItemResetFailed clears an item's failed flag.
func (c *Client) ItemResetFailed(id int64) (*ToggleResponse, error) {
	return call[ToggleResponse](c, "ItemResetFailed", IDRequest{ID: id})
}

// ItemResetMissing clears an item's missing and skip flags.
func (c *Client) ItemResetMissing(id int64) (*ToggleResponse, error) {
	return call[ToggleResponse](c, "ItemResetMissing", IDRequest{ID: id})
}

// ItemToggleSkip flips an item's skip flag.
func (c *Client) ItemToggleSkip(id int64) (*ToggleResponse, error) {
	return call[ToggleResponse](c, "ItemToggleSkip", IDRequest{ID: id})
}

// ItemDeleteFiles removes an acquired item's folder.
func (c *Client) ItemDeleteFiles(id int64) (*DeleteFilesResponse, error) {
	return call[DeleteFilesResponse](c, "ItemDeleteFiles", IDRequest{ID: id})
}

// Refresh runs a poller pass.
func (c *Client) Refresh(wait bool) (*RefreshResponse, error) {
	return call[RefreshResponse](c, "Refresh", TriggerRequest{Wait: wait})
}

// Scan runs a library scan.
func (c *Client) Scan(wait bool) (*ScanResponse, error) {
	return call[ScanResponse](c, "Scan", TriggerRequest{Wait: wait})
}

// BucketAdd creates a bucket.
func (c *Client) BucketAdd(req BucketAddRequest) (*BucketResponse, error) {
	return call[BucketResponse](c, "BucketAdd", req)
}

// BucketList returns every bucket.
func (c *Client) BucketList() (*BucketListResponse, error) {
	return call[BucketListResponse](c, "BucketList", EmptyRequest{})
}

// BucketDefault marks a bucket as default.
func (c *Client) BucketDefault(name string) (*BucketResponse, error) {
	return call[BucketResponse](c, "BucketDefault", BucketRequest{Name: name})
}

// BucketRemove deletes a bucket.
func (c *Client) BucketRemove(name string) error {
	_, err := call[EmptyResponse](c, "BucketRemove", BucketRequest{Name: name})
	return err
}

// SettingList returns every runtime setting.
func (c *Client) SettingList() (*SettingListResponse, error) {
	return call[SettingListResponse](c, "SettingList", EmptyRequest{})
}

// SettingGet returns one runtime setting.
func (c *Client) SettingGet(key string) (*SettingResponse, error) {
	return call[SettingResponse](c, "SettingGet", SettingRequest{Key: key})
}

// SettingSet writes one runtime setting.
func (c *Client) SettingSet(key, value string) (*SettingResponse, error) {
	return call[SettingResponse](c, "SettingSet", SettingRequest{Key: key, Value: value})
}

// SettingClearCookies removes the stored credentials.
func (c *Client) SettingClearCookies() error {
	_, err := call[EmptyResponse](c, "SettingClearCookies", EmptyRequest{})
	return err
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
