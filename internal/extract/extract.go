// Package extract turns scanned answer-sheet PDFs into transcript text.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/takeda-juku/tensaku/constants"
)

// TextExtractor reads a scanned answer sheet and returns its transcript.
// The first line of the transcript is the master ID the extractor
// matched from candidates, or constants.UnknownMasterID.
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte, candidates []string) (string, error)
}

// BuildPrompt renders the transcription instruction with the candidate
// master IDs the model may emit on the first line.
func BuildPrompt(candidates []string) string {
	var ids strings.Builder
	for _, id := range candidates {
		ids.WriteString("- ")
		ids.WriteString(id)
		ids.WriteString("\n")
	}
	return fmt.Sprintf(promptTemplate, strings.TrimRight(ids.String(), "\n"), constants.UnknownMasterID)
}

const promptTemplate = `提供された答案PDFのすべてのページから「生徒の答案（記述式）」をテキストデータ化してください。

以下の【抽出要素①】〜【抽出要素③】をすべて必ず実行してください。

【抽出要素①：対象問題の特定（完全一致ルールの厳守）】
答案の上部にある年度や大問番号から、この答案が以下のどれに該当するかを判定し、
テキストの 1行目 に必ず指定の「マスターID」をそのまま書き出してください。
(選択肢以外の文字は1行目に絶対に含めないこと)

[マスターIDの選択肢]
%s

※厳守：上記リストにある指定のID以外の文字列は、いかなる理由があっても1行目に出力してはならない。もし画像が不鮮明でどれにも該当しないと判断した場合は、推測せずに必ず「%s」と出力せよ。

【抽出要素②：生徒番号の抽出】
答案用紙の上部や隅に書かれている「生徒番号（8桁の数字など）」を読み取り、
テキストの 2行目 に出力してください。
例: 55615210

【抽出要素③：記述式の解答文章（超重要）】
手書きで書かれている「日本語や英語の文章（記述式の解答）」をすべて漏らさず書き起こしてください。
(A)、(B)、(C)などの設問番号を先頭につけ、生徒が書いた文字をそのままテキスト化してください。

【抽出要素④：マークシートの読み取り】
マークシート形式の解答欄（丸を塗りつぶす形式）がある場合は、絶対に推測せず、塗られている丸の記号だけを読み取ってください。
出力形式: (問題番号) 選択した記号
例: (27) a, (28) c

【注意事項】
・余計な挨拶や解説は不要です。マスターID、生徒番号、記述式解答、マーク読み取り結果のみを順番に出力してください。`
