package protocol

import "fmt"

// Result codes carried in the error field of response frames.
// CodeLocal never appears on the wire; it marks transport and decode
// failures on this side.
const (
	CodeLocal              = -1
	CodeSuccess            = 0
	CodeGeneral            = 1
	CodeNotRegistered      = 2
	CodeInvalidLoginPin    = 3
	CodeInvalidCredentials = 4
	CodeCertPinFailed      = 6
	CodeNoHousehold        = 7
	CodeServerComm         = 8
	CodeDeviceComm         = 9
	CodeDeviceControl      = 10
	CodeNotFound           = 11
	CodeSessionExpired     = 17
	CodeNetwork            = 18
	CodeDuplicateID        = 19
	CodeUnverifiedUser     = 25
	CodeGuardBlocked       = 34
	CodeAlreadyRegistered  = 39
)

// messages is the server's own wording for each code, shown to operators
// unchanged.
var messages = map[int]string{
	0:  "성공",
	1:  "오류가 발생하였습니다",
	2:  "등록된 스마트폰이 아닙니다",
	3:  "로그인핀이 유효하지 않습니다",
	4:  "아이디 또는 암호가 올바르지 않습니다",
	6:  "인증핀 생성에 실패하였습니다",
	7:  "세대정보를 찾을 수 없습니다",
	8:  "단지서버와의 통신이 원활하지 않습니다",
	9:  "해당 기기와 접속이 원활하지 않습니다",
	10: "해당 기기 제어에 실패하였습니다",
	11: "해당 정보를 찾을 수 없습니다",
	17: "서비스 이용이 없어 자동 로그아웃 되었습니다",
	18: "네트워크가 원활하지 않습니다",
	19: "중복된 아이디입니다",
	25: "회원가입 미인증 사용자입니다",
	34: "외출모드를 실행할 수 없습니다. 현관문 확인 필요",
	39: "이미 등록된 스마트폰입니다",
}

// Message returns the server message for code, or "Error <code>" for
// codes outside the table.
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Error %d", code)
}

// KnownCode reports whether code appears in the message table.
func KnownCode(code int) bool {
	_, ok := messages[code]
	return ok
}

// RequiresRelogin reports whether code means the session pin is no
// longer accepted and a fresh login should be attempted.
func RequiresRelogin(code int) bool {
	return code == CodeSessionExpired || code == CodeInvalidLoginPin
}
