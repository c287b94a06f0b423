package dto

type TestGitLabConnectionRequest struct {
	HostURL                 string `json:"host_url" binding:"required,url"`
	APIToken                string `json:"api_token" binding:"required,min=10"`
	IgnoreCertificateErrors bool   `json:"ignore_certificate_errors"`
}

type TestGitLabConnectionResponse struct {
	Username string `json:"username"`
}
