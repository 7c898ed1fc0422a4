package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

type EditHubApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	byJwt string
}

func NewEditHubApi(apiUrl string) *EditHubApi {
	return NewEditHubApiWithContext(context.Background(), apiUrl)
}

func NewEditHubApiWithContext(ctx context.Context, apiUrl string) *EditHubApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &EditHubApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *EditHubApi) SetByJwt(byJwt string) {
	self.byJwt = byJwt
}

type ApiError struct {
	Message string `json:"message"`
}

type UserResult struct {
	UserId string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email"`
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

type AuthLoginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResult struct {
	Token string      `json:"token,omitempty"`
	User  *UserResult `json:"user,omitempty"`
	Error *ApiError   `json:"error,omitempty"`
}

func (self *EditHubApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.byJwt,
		&AuthLoginResult{},
		callback,
	)
}

func (self *EditHubApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.byJwt,
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

type AuthRegisterCallback apiCallback[*AuthLoginResult]

type AuthRegisterArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (self *EditHubApi) AuthRegister(authRegister *AuthRegisterArgs, callback AuthRegisterCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/auth/register", self.apiUrl),
		authRegister,
		self.byJwt,
		&AuthLoginResult{},
		callback,
	)
}

type AuthSessionCallback apiCallback[*AuthSessionResult]

type AuthSessionResult struct {
	User  *UserResult `json:"user,omitempty"`
	Error *ApiError   `json:"error,omitempty"`
}

func (self *EditHubApi) AuthSession(callback AuthSessionCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/auth/session", self.apiUrl),
		self.byJwt,
		&AuthSessionResult{},
		callback,
	)
}

func (self *EditHubApi) AuthSessionSync() (*AuthSessionResult, error) {
	return get(
		self.ctx,
		fmt.Sprintf("%s/auth/session", self.apiUrl),
		self.byJwt,
		&AuthSessionResult{},
		NewNoopApiCallback[*AuthSessionResult](),
	)
}

type AuthLogoutCallback apiCallback[*AuthLogoutResult]

type AuthLogoutResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) AuthLogout(callback AuthLogoutCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/auth/logout", self.apiUrl),
		nil,
		self.byJwt,
		&AuthLogoutResult{},
		callback,
	)
}

type Project struct {
	ProjectId   Id        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GetProjectsCallback apiCallback[*GetProjectsResult]

type GetProjectsArgs struct {
	Status string
	Search string
	Limit  int
	Offset int
}

type GetProjectsResult struct {
	Projects []*Project `json:"projects"`
	Total    int        `json:"total"`
	HasMore  bool       `json:"hasMore"`
}

func (self *EditHubApi) projectsUrl(getProjects *GetProjectsArgs) string {
	query := url.Values{}
	if getProjects.Status != "" {
		query.Set("status", getProjects.Status)
	}
	if getProjects.Search != "" {
		query.Set("search", getProjects.Search)
	}
	if 0 < getProjects.Limit {
		query.Set("limit", fmt.Sprintf("%d", getProjects.Limit))
	}
	if 0 < getProjects.Offset {
		query.Set("offset", fmt.Sprintf("%d", getProjects.Offset))
	}
	if len(query) == 0 {
		return fmt.Sprintf("%s/projects", self.apiUrl)
	}
	return fmt.Sprintf("%s/projects?%s", self.apiUrl, query.Encode())
}

func (self *EditHubApi) GetProjects(getProjects *GetProjectsArgs, callback GetProjectsCallback) {
	go get(
		self.ctx,
		self.projectsUrl(getProjects),
		self.byJwt,
		&GetProjectsResult{},
		callback,
	)
}

func (self *EditHubApi) GetProjectsSync(getProjects *GetProjectsArgs) (*GetProjectsResult, error) {
	return get(
		self.ctx,
		self.projectsUrl(getProjects),
		self.byJwt,
		&GetProjectsResult{},
		NewNoopApiCallback[*GetProjectsResult](),
	)
}

type ProjectCallback apiCallback[*ProjectResult]

type ProjectResult struct {
	Project *Project  `json:"project,omitempty"`
	Error   *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) GetProject(projectId Id, callback ProjectCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/projects/%s", self.apiUrl, projectId),
		self.byJwt,
		&ProjectResult{},
		callback,
	)
}

func (self *EditHubApi) GetProjectSync(projectId Id) (*ProjectResult, error) {
	return get(
		self.ctx,
		fmt.Sprintf("%s/projects/%s", self.apiUrl, projectId),
		self.byJwt,
		&ProjectResult{},
		NewNoopApiCallback[*ProjectResult](),
	)
}

type CreateProjectCallback apiCallback[*ProjectResult]

type CreateProjectArgs struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (self *EditHubApi) CreateProject(createProject *CreateProjectArgs, callback CreateProjectCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects", self.apiUrl),
		createProject,
		self.byJwt,
		&ProjectResult{},
		callback,
	)
}

type UpdateProjectCallback apiCallback[*ProjectResult]

type UpdateProjectArgs struct {
	ProjectId   Id     `json:"-"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (self *EditHubApi) UpdateProject(updateProject *UpdateProjectArgs, callback UpdateProjectCallback) {
	go patch(
		self.ctx,
		fmt.Sprintf("%s/projects/%s", self.apiUrl, updateProject.ProjectId),
		updateProject,
		self.byJwt,
		&ProjectResult{},
		callback,
	)
}

type DeleteProjectCallback apiCallback[*DeleteProjectResult]

type DeleteProjectResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) DeleteProject(projectId Id, callback DeleteProjectCallback) {
	go del(
		self.ctx,
		fmt.Sprintf("%s/projects/%s", self.apiUrl, projectId),
		self.byJwt,
		&DeleteProjectResult{},
		callback,
	)
}

type ArchiveProjectCallback apiCallback[*ProjectResult]

func (self *EditHubApi) ArchiveProject(projectId Id, callback ArchiveProjectCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/archive", self.apiUrl, projectId),
		nil,
		self.byJwt,
		&ProjectResult{},
		callback,
	)
}

type RestoreProjectCallback apiCallback[*ProjectResult]

func (self *EditHubApi) RestoreProject(projectId Id, callback RestoreProjectCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/restore", self.apiUrl, projectId),
		nil,
		self.byJwt,
		&ProjectResult{},
		callback,
	)
}

type FileTreeItem struct {
	ItemId        Id              `json:"id"`
	Path          string          `json:"path"`
	Name          string          `json:"name"`
	ItemType      string          `json:"type"`
	Size          int64           `json:"size"`
	MimeType      string          `json:"mimeType,omitempty"`
	Permissions   string          `json:"permissions,omitempty"`
	ChildrenCount int             `json:"childrenCount,omitempty"`
	HasChildren   bool            `json:"hasChildren,omitempty"`
	Children      []*FileTreeItem `json:"children,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type GetFileTreeCallback apiCallback[*GetFileTreeResult]

type GetFileTreeArgs struct {
	ProjectId Id
	Path      string
	Search    string
}

type GetFileTreeResult struct {
	Items []*FileTreeItem `json:"items"`
	Total int             `json:"total"`
}

func (self *EditHubApi) fileTreeUrl(getFileTree *GetFileTreeArgs) string {
	query := url.Values{}
	if getFileTree.Path != "" {
		query.Set("path", getFileTree.Path)
	}
	if getFileTree.Search != "" {
		query.Set("search", getFileTree.Search)
	}
	if len(query) == 0 {
		return fmt.Sprintf("%s/projects/%s/files/tree", self.apiUrl, getFileTree.ProjectId)
	}
	return fmt.Sprintf("%s/projects/%s/files/tree?%s", self.apiUrl, getFileTree.ProjectId, query.Encode())
}

func (self *EditHubApi) GetFileTree(getFileTree *GetFileTreeArgs, callback GetFileTreeCallback) {
	go get(
		self.ctx,
		self.fileTreeUrl(getFileTree),
		self.byJwt,
		&GetFileTreeResult{},
		callback,
	)
}

func (self *EditHubApi) GetFileTreeSync(getFileTree *GetFileTreeArgs) (*GetFileTreeResult, error) {
	return get(
		self.ctx,
		self.fileTreeUrl(getFileTree),
		self.byJwt,
		&GetFileTreeResult{},
		NewNoopApiCallback[*GetFileTreeResult](),
	)
}

type GetFileTreeChildrenCallback apiCallback[*GetFileTreeResult]

type GetFileTreeChildrenArgs struct {
	ProjectId Id
	Path      string
}

func (self *EditHubApi) GetFileTreeChildren(getChildren *GetFileTreeChildrenArgs, callback GetFileTreeChildrenCallback) {
	go get(
		self.ctx,
		fmt.Sprintf(
			"%s/projects/%s/files/tree/children?path=%s",
			self.apiUrl,
			getChildren.ProjectId,
			url.QueryEscape(getChildren.Path),
		),
		self.byJwt,
		&GetFileTreeResult{},
		callback,
	)
}

type GetFileContentCallback apiCallback[*FileContentResult]

type GetFileContentArgs struct {
	ProjectId Id
	FilePath  string
}

// `Etag` is the authoritative revision marker. only an explicit save moves it.
type FileContentResult struct {
	FileId      Id        `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType,omitempty"`
	Encoding    string    `json:"encoding,omitempty"`
	Permissions string    `json:"permissions,omitempty"`
	Etag        string    `json:"etag"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (self *EditHubApi) fileContentUrl(projectId Id, filePath string) string {
	return fmt.Sprintf(
		"%s/projects/%s/files/content?filePath=%s",
		self.apiUrl,
		projectId,
		url.QueryEscape(filePath),
	)
}

func (self *EditHubApi) GetFileContent(getFileContent *GetFileContentArgs, callback GetFileContentCallback) {
	go get(
		self.ctx,
		self.fileContentUrl(getFileContent.ProjectId, getFileContent.FilePath),
		self.byJwt,
		&FileContentResult{},
		callback,
	)
}

func (self *EditHubApi) GetFileContentSync(getFileContent *GetFileContentArgs) (*FileContentResult, error) {
	return get(
		self.ctx,
		self.fileContentUrl(getFileContent.ProjectId, getFileContent.FilePath),
		self.byJwt,
		&FileContentResult{},
		NewNoopApiCallback[*FileContentResult](),
	)
}

type SaveFileCallback apiCallback[*FileContentResult]

// the explicit, authoritative save. distinct from the draft endpoint.
type SaveFileArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	Content   string `json:"content"`
	Message   string `json:"message,omitempty"`
}

func (self *EditHubApi) SaveFile(saveFile *SaveFileArgs, callback SaveFileCallback) {
	go put(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/content", self.apiUrl, saveFile.ProjectId),
		saveFile,
		self.byJwt,
		&FileContentResult{},
		callback,
	)
}

func (self *EditHubApi) SaveFileSync(saveFile *SaveFileArgs) (*FileContentResult, error) {
	return put(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/content", self.apiUrl, saveFile.ProjectId),
		saveFile,
		self.byJwt,
		&FileContentResult{},
		NewNoopApiCallback[*FileContentResult](),
	)
}

type SaveDraftCallback apiCallback[*SaveDraftResult]

// non-authoritative scratch save. the draft endpoint returns no meaningful
// body.
type SaveDraftArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	Content   string `json:"content"`
}

type SaveDraftResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) SaveDraft(saveDraft *SaveDraftArgs, callback SaveDraftCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/draft", self.apiUrl, saveDraft.ProjectId),
		saveDraft,
		self.byJwt,
		&SaveDraftResult{},
		callback,
	)
}

func (self *EditHubApi) SaveDraftSync(saveDraft *SaveDraftArgs) (*SaveDraftResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/draft", self.apiUrl, saveDraft.ProjectId),
		saveDraft,
		self.byJwt,
		&SaveDraftResult{},
		NewNoopApiCallback[*SaveDraftResult](),
	)
}

type Draft struct {
	DraftId   Id        `json:"id"`
	FileId    Id        `json:"fileId"`
	FilePath  string    `json:"filePath"`
	Content   string    `json:"content"`
	Encoding  string    `json:"encoding,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type GetDraftsCallback apiCallback[*GetDraftsResult]

type GetDraftsResult struct {
	Drafts []*Draft `json:"drafts"`
	Total  int      `json:"total"`
}

func (self *EditHubApi) GetDrafts(projectId Id, callback GetDraftsCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/drafts", self.apiUrl, projectId),
		self.byJwt,
		&GetDraftsResult{},
		callback,
	)
}

func (self *EditHubApi) GetDraftsSync(projectId Id) (*GetDraftsResult, error) {
	return get(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/drafts", self.apiUrl, projectId),
		self.byJwt,
		&GetDraftsResult{},
		NewNoopApiCallback[*GetDraftsResult](),
	)
}

type RestoreDraftCallback apiCallback[*RestoreDraftResult]

type RestoreDraftArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	DraftId   Id     `json:"draftId"`
}

type RestoreDraftResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) RestoreDraft(restoreDraft *RestoreDraftArgs, callback RestoreDraftCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/restore-draft", self.apiUrl, restoreDraft.ProjectId),
		restoreDraft,
		self.byJwt,
		&RestoreDraftResult{},
		callback,
	)
}

type FileVersion struct {
	VersionId  Id        `json:"id"`
	FileId     Id        `json:"fileId"`
	Content    string    `json:"content"`
	Size       int64     `json:"size"`
	AuthorId   string    `json:"authorId,omitempty"`
	AuthorName string    `json:"authorName,omitempty"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GetFileHistoryCallback apiCallback[*GetFileHistoryResult]

type GetFileHistoryArgs struct {
	ProjectId Id
	FilePath  string
	Limit     int
	Offset    int
}

type GetFileHistoryResult struct {
	Versions []*FileVersion `json:"versions"`
	Total    int            `json:"total"`
	HasMore  bool           `json:"hasMore"`
}

func (self *EditHubApi) fileHistoryUrl(getFileHistory *GetFileHistoryArgs) string {
	query := url.Values{}
	query.Set("filePath", getFileHistory.FilePath)
	if 0 < getFileHistory.Limit {
		query.Set("limit", fmt.Sprintf("%d", getFileHistory.Limit))
	}
	if 0 < getFileHistory.Offset {
		query.Set("offset", fmt.Sprintf("%d", getFileHistory.Offset))
	}
	return fmt.Sprintf("%s/projects/%s/files/history?%s", self.apiUrl, getFileHistory.ProjectId, query.Encode())
}

func (self *EditHubApi) GetFileHistory(getFileHistory *GetFileHistoryArgs, callback GetFileHistoryCallback) {
	go get(
		self.ctx,
		self.fileHistoryUrl(getFileHistory),
		self.byJwt,
		&GetFileHistoryResult{},
		callback,
	)
}

type RestoreVersionCallback apiCallback[*RestoreVersionResult]

type RestoreVersionArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	VersionId Id     `json:"versionId"`
}

type RestoreVersionResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) RestoreVersion(restoreVersion *RestoreVersionArgs, callback RestoreVersionCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/restore-version", self.apiUrl, restoreVersion.ProjectId),
		restoreVersion,
		self.byJwt,
		&RestoreVersionResult{},
		callback,
	)
}

type CompareVersionsCallback apiCallback[*CompareVersionsResult]

type CompareVersionsArgs struct {
	ProjectId  Id     `json:"-"`
	FilePath   string `json:"filePath"`
	VersionId1 Id     `json:"versionId1"`
	VersionId2 Id     `json:"versionId2"`
}

type VersionChanges struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

type CompareVersionsResult struct {
	Version1 *FileVersion    `json:"version1,omitempty"`
	Version2 *FileVersion    `json:"version2,omitempty"`
	Diff     string          `json:"diff,omitempty"`
	Changes  *VersionChanges `json:"changes,omitempty"`
	Error    *ApiError       `json:"error,omitempty"`
}

func (self *EditHubApi) CompareVersions(compareVersions *CompareVersionsArgs, callback CompareVersionsCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/compare-versions", self.apiUrl, compareVersions.ProjectId),
		compareVersions,
		self.byJwt,
		&CompareVersionsResult{},
		callback,
	)
}

func (self *EditHubApi) CompareVersionsSync(compareVersions *CompareVersionsArgs) (*CompareVersionsResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/compare-versions", self.apiUrl, compareVersions.ProjectId),
		compareVersions,
		self.byJwt,
		&CompareVersionsResult{},
		NewNoopApiCallback[*CompareVersionsResult](),
	)
}

type CreateFileCallback apiCallback[*CreateFileResult]

type CreateFileArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
}

type CreateFileResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) CreateFile(createFile *CreateFileArgs, callback CreateFileCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/create-file", self.apiUrl, createFile.ProjectId),
		createFile,
		self.byJwt,
		&CreateFileResult{},
		callback,
	)
}

type CreateDirectoryCallback apiCallback[*CreateFileResult]

type CreateDirectoryArgs struct {
	ProjectId Id     `json:"-"`
	FilePath  string `json:"filePath"`
	Name      string `json:"name"`
}

func (self *EditHubApi) CreateDirectory(createDirectory *CreateDirectoryArgs, callback CreateDirectoryCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/create-directory", self.apiUrl, createDirectory.ProjectId),
		createDirectory,
		self.byJwt,
		&CreateFileResult{},
		callback,
	)
}

type DeleteFileCallback apiCallback[*DeleteFileResult]

type DeleteFileArgs struct {
	ProjectId Id
	FilePath  string
}

type DeleteFileResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) DeleteFile(deleteFile *DeleteFileArgs, callback DeleteFileCallback) {
	go del(
		self.ctx,
		fmt.Sprintf(
			"%s/projects/%s/files?filePath=%s",
			self.apiUrl,
			deleteFile.ProjectId,
			url.QueryEscape(deleteFile.FilePath),
		),
		self.byJwt,
		&DeleteFileResult{},
		callback,
	)
}

type MoveFileCallback apiCallback[*MoveFileResult]

type MoveFileArgs struct {
	ProjectId  Id     `json:"-"`
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
}

type MoveFileResult struct {
	Error *ApiError `json:"error,omitempty"`
}

func (self *EditHubApi) MoveFile(moveFile *MoveFileArgs, callback MoveFileCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/move", self.apiUrl, moveFile.ProjectId),
		moveFile,
		self.byJwt,
		&MoveFileResult{},
		callback,
	)
}

type CopyFileCallback apiCallback[*MoveFileResult]

type CopyFileArgs struct {
	ProjectId  Id     `json:"-"`
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
}

func (self *EditHubApi) CopyFile(copyFile *CopyFileArgs, callback CopyFileCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/projects/%s/files/copy", self.apiUrl, copyFile.ProjectId),
		copyFile,
		self.byJwt,
		&MoveFileResult{},
		callback,
	)
}

func post[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "POST", url, args, byJwt, result, callback)
}

func put[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "PUT", url, args, byJwt, result, callback)
}

func patch[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "PATCH", url, args, byJwt, result, callback)
}

func get[R any](ctx context.Context, url string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "GET", url, nil, byJwt, result, callback)
}

func del[R any](ctx context.Context, url string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "DELETE", url, nil, byJwt, result, callback)
}

func request[R any](ctx context.Context, method string, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "text/json")

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if r.StatusCode < 200 || 300 <= r.StatusCode {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	// some endpoints (draft, logout, delete) return no meaningful body
	if 0 < len(responseBodyBytes) {
		err = json.Unmarshal(responseBodyBytes, &result)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	callback.Result(result, nil)
	return result, nil
}
