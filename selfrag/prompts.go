package selfrag

const cityExtractionSystem = `Ты извлекаешь название города из запроса пользователя.

Правила:
- Верни ТОЛЬКО название города в именительном падеже (например: "Москва", "Казань").
- Учитывай склонения и разговорные формы ("в Питере" -> "Санкт-Петербург").
- Если город в запросе не упомянут, верни ровно одно слово: null.
- Никаких пояснений, кавычек и знаков препинания.`

const relevanceEvaluationSystem = `Ты оцениваешь, отвечают ли найденные события на запрос пользователя.

Ответь ровно одним словом в первой строке:
- YES - если среди событий есть хотя бы несколько подходящих под запрос
- NO - если события не относятся к запросу или их нет

После первого слова можешь добавить короткое пояснение.`

const relevanceEvaluationUser = `Запрос пользователя:
%s

Найденные события:
%s`

const queryReformulationSystem = `Ты переформулируешь поисковый запрос, чтобы найти больше подходящих событий в векторной базе.

Предыдущий поиск вернул нерелевантные результаты. Предложи 3 альтернативные формулировки запроса.

Правила:
- Каждая формулировка на отдельной строке, без нумерации и маркеров.
- Сохраняй смысл исходного запроса, меняй лексику: синонимы, более общие или более конкретные термины.
- Не добавляй пояснений.`

const queryReformulationUser = `Исходный запрос:
%s

Найденные события (нерелевантные):
%s`

const constraintsExtractionPrompt = `Извлеки ограничения для планирования из текста пользователя.

Верни ТОЛЬКО валидный JSON объект (без пояснений, без markdown), строго с ключами:
- start_time: "HH:MM" или null (например: "10:00", "14:30")
- end_time: "HH:MM" или null (например: "18:00", "20:00")
- max_total_time_minutes: integer или null (общая длительность плана в минутах)
- preferred_transport: string или null (например: "walking", "bus", "car")
- budget: number или null (бюджет в рублях)
- max_events: integer или null (сколько событий/мест максимум включить в план)
- other_constraints: array[string] (другие ограничения)

ВАЖНО при извлечении max_events:
- Если пользователь явно указал количество мест ("2 места", "3 события", "пару мест", "немного мест") - извлеки это число
- "пару" = 2, "несколько" = 3, "немного" = 3-4
- Если количество НЕ указано - верни null
- Если указано "много" или "максимум" - верни null (не ограничиваем)

ВАЖНО при извлечении времени:
- Извлекай ТОЛЬКО явно указанное время
- Формат времени СТРОГО "HH:MM" (например: "09:00", "14:30", "18:00")
- Если время не указано - верни null
- "утром" = null (не конкретное время), "с 10 утра" = "10:00"

Текст пользователя:
%s`
