package app

// Command はfurikaeriのサブコマンド。
type Command string

const (
	// CommandServe はHTTP APIを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandMigrate は埋め込みのスキーマ（users, posts, summaries）を最新まで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のAPIの /health を叩き、結果を終了コードで返す。
	// シェルのないdistrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はos.Args[1:]の先頭をサブコマンドとして解釈する。
// 未知の値はserveとして扱い、2つ目以降の引数は見ない。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandMigrate:
		return CommandMigrate
	case CommandHealthcheck:
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
