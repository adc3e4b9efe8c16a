package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
)

type emailTemplate struct {
	subject string
	body    string
}

// Тексты писем. Данные: поля события плюс to_name, brand_name, creator_name, booking_url.
var emailTemplates = map[Type]emailTemplate{
	TypeCreatorNewBooking: {
		subject: `Новое бронирование: {{.service_title}}`,
		body: `<p>{{.to_name}}, бренд {{.brand_name}} забронировал услугу «{{.service_title}}» на сумму {{money .amount_cents}}.</p>
{{if .event_date}}<p>Дата события: {{date .event_date}}</p>{{end}}
<p><a href="{{.booking_url}}">Открыть бронирование</a></p>`,
	},
	TypeBrandBookingAccepted: {
		subject: `{{.creator_name}} принял бронирование`,
		body: `<p>{{.to_name}}, креатор {{.creator_name}} принял ваше бронирование.</p>
<p>Срок сдачи материалов: {{date .delivery_deadline}}</p>
<p><a href="{{.booking_url}}">Открыть бронирование</a></p>`,
	},
	TypeBrandBookingDeclined: {
		subject: `{{.creator_name}} отклонил бронирование`,
		body:    `<p>{{.to_name}}, креатор {{.creator_name}} отклонил ваше бронирование. Вы можете выбрать другого креатора.</p>`,
	},
	TypeCreatorBookingCancelled: {
		subject: `Бронирование отменено`,
		body:    `<p>{{.to_name}}, бренд {{.brand_name}} отменил бронирование.</p>`,
	},
	TypeBrandDeliverablesSubmitted: {
		subject: `Материалы готовы к проверке (версия {{.version}})`,
		body: `<p>{{.to_name}}, {{.creator_name}} загрузил материалы: файлов {{.file_count}}, версия {{.version}}.</p>
<p>Проверьте работу и подтвердите её или запросите доработку.</p>
<p><a href="{{.booking_url}}">Перейти к материалам</a></p>`,
	},
	TypeCreatorRevisionRequested: {
		subject: `Запрошена доработка ({{.revision_count}} из 2)`,
		body: `<p>{{.to_name}}, бренд {{.brand_name}} попросил доработать материалы.</p>
{{if .revision_notes}}<blockquote>{{.revision_notes}}</blockquote>{{end}}
<p><a href="{{.booking_url}}">Открыть бронирование</a></p>`,
	},
	TypeCreatorDeliveryConfirmed: {
		subject: `Оплата {{money .amount_cents}} переведена`,
		body: `<p>{{.to_name}}, {{if .auto_released}}срок проверки истёк и работа подтверждена автоматически{{else}}бренд {{.brand_name}} подтвердил работу{{end}}.</p>
<p>К выплате: {{money .amount_cents}}</p>`,
	},
	TypeCreatorDisputeOpened: {
		subject: `Бренд открыл спор по бронированию`,
		body: `<p>{{.to_name}}, бренд {{.brand_name}} открыл спор.</p>
<blockquote>{{.reason}}</blockquote>
<p>Ответьте до {{date .response_deadline}}, иначе спор будет передан администратору.</p>
<p><a href="{{.booking_url}}">Ответить</a></p>`,
	},
	TypeBrandDisputeOpened: {
		subject: `Креатор открыл спор по бронированию`,
		body: `<p>{{.to_name}}, креатор {{.creator_name}} открыл спор.</p>
<blockquote>{{.reason}}</blockquote>
<p>Ответьте до {{date .response_deadline}}, иначе спор будет передан администратору.</p>
<p><a href="{{.booking_url}}">Ответить</a></p>`,
	},
	TypeDisputeResponseReceived: {
		subject: `Получен ответ по спору`,
		body: `<p>{{.to_name}}, вторая сторона ответила на ваш спор. Спор передан на рассмотрение.</p>
<p><a href="{{.booking_url}}">Открыть бронирование</a></p>`,
	},
	TypeAdminDisputeEscalated: {
		subject: `Спор эскалирован: {{.brand_name}} / {{.creator_name}}`,
		body: `<p>Вторая сторона не ответила в срок. Спор требует решения администратора до {{date .resolution_deadline}}.</p>
<blockquote>{{.reason}}</blockquote>
<p>Спор: {{.dispute_id}}</p>`,
	},
	TypeAdminDisputeOverdue: {
		subject: `Просрочено решение по спору {{.dispute_id}}`,
		body:    `<p>Срок решения спора между {{.brand_name}} и {{.creator_name}} истёк {{date .resolution_deadline}}.</p>`,
	},
	TypeBrandDisputeResolved: {
		subject: `Спор решён`,
		body: `<p>{{.to_name}}, администратор вынес решение по спору с {{.creator_name}}.</p>
<p>Возврат: {{.refund_percentage}}% ({{money .refund_cents}})</p>
<blockquote>{{.decision_reason}}</blockquote>`,
	},
	TypeCreatorDisputeResolved: {
		subject: `Спор решён`,
		body: `<p>{{.to_name}}, администратор вынес решение по спору с {{.brand_name}}.</p>
<p>Возврат бренду: {{.refund_percentage}}%</p>
<blockquote>{{.decision_reason}}</blockquote>`,
	},
}

var templateFuncs = map[string]any{
	"money": func(v any) string {
		switch n := v.(type) {
		case int64:
			return valueobject.Cents(n).String()
		case int:
			return valueobject.Cents(n).String()
		}
		return fmt.Sprint(v)
	},
	"date": func(v any) string {
		s, ok := v.(string)
		if !ok {
			return ""
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return s
		}
		return t.Format("02.01.2006 15:04 MST")
	},
}

type compiledTemplate struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

// Renderer собирает тему и HTML письма по типу события.
type Renderer struct {
	templates map[Type]compiledTemplate
}

// NewRenderer компилирует все шаблоны. Ошибка в шаблоне обнаруживается при старте.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[Type]compiledTemplate, len(emailTemplates))}
	for t, tpl := range emailTemplates {
		subject, err := texttemplate.New(string(t)).Funcs(templateFuncs).Parse(tpl.subject)
		if err != nil {
			return nil, fmt.Errorf("notify: шаблон темы %s: %w", t, err)
		}
		body, err := htmltemplate.New(string(t)).Funcs(templateFuncs).Parse(tpl.body)
		if err != nil {
			return nil, fmt.Errorf("notify: шаблон письма %s: %w", t, err)
		}
		r.templates[t] = compiledTemplate{subject: subject, body: body}
	}
	return r, nil
}

func (r *Renderer) Render(msg Message) (subject, html string, err error) {
	tpl, ok := r.templates[msg.Type]
	if !ok {
		return "", "", invalid("неизвестный тип письма " + string(msg.Type))
	}

	var sb, hb bytes.Buffer
	if err := tpl.subject.Execute(&sb, msg.Data); err != nil {
		return "", "", fmt.Errorf("notify: тема %s: %w", msg.Type, err)
	}
	if err := tpl.body.Execute(&hb, msg.Data); err != nil {
		return "", "", fmt.Errorf("notify: тело %s: %w", msg.Type, err)
	}
	return sb.String(), layout(hb.String()), nil
}

func layout(content string) string {
	return `<!DOCTYPE html><html><body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">` +
		`<div style="max-width: 600px; margin: 0 auto; padding: 20px;">` + content +
		`<p style="margin-top: 30px; font-size: 12px; color: #666;">Это автоматическое письмо, отвечать на него не нужно.</p>` +
		`</div></body></html>`
}
