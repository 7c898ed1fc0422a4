package collab

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// bearer token plus the per-tab identity presented to the api and the
// transport. `InstanceId` is unique per session instance so that the platform
// can distinguish tabs of the same user.
type ClientAuth struct {
	ByJwt      string
	InstanceId Id
	AppVersion string
}

func (self *ClientAuth) UserId() (string, error) {
	byJwt, err := ParseByJwtUnverified(self.ByJwt)
	if err != nil {
		return "", err
	}
	return byJwt.UserId, nil
}

type ByJwt struct {
	UserId    string
	UserName  string
	UserEmail string
}

// the token is issued and verified by the platform. the client only reads
// claims to learn its own identity.
func ParseByJwtUnverified(jwt string) (*ByJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(jwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	byJwt := &ByJwt{}

	if userId, ok := claims["userId"].(string); ok {
		byJwt.UserId = userId
	}
	if userName, ok := claims["name"].(string); ok {
		byJwt.UserName = userName
	}
	if userEmail, ok := claims["email"].(string); ok {
		byJwt.UserEmail = userEmail
	}

	return byJwt, nil
}
